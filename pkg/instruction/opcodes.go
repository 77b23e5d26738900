package instruction

import "github.com/daimatz/jvmc/pkg/descriptor"

// Opcode constants
const (
	OpNop             = 0x00
	OpAconstNull      = 0x01
	OpIconstM1        = 0x02
	OpIconst0         = 0x03
	OpIconst1         = 0x04
	OpIconst2         = 0x05
	OpIconst3         = 0x06
	OpIconst4         = 0x07
	OpIconst5         = 0x08
	OpLconst0         = 0x09
	OpLconst1         = 0x0A
	OpFconst0         = 0x0B
	OpFconst1         = 0x0C
	OpFconst2         = 0x0D
	OpDconst0         = 0x0E
	OpDconst1         = 0x0F
	OpBipush          = 0x10
	OpSipush          = 0x11
	OpLdc             = 0x12
	OpLdcW            = 0x13
	OpLdc2W           = 0x14
	OpIload           = 0x15
	OpLload           = 0x16
	OpFload           = 0x17
	OpDload           = 0x18
	OpAload           = 0x19
	OpIload0          = 0x1A
	OpLload0          = 0x1E
	OpFload0          = 0x22
	OpDload0          = 0x26
	OpAload0          = 0x2A
	OpIaload          = 0x2E
	OpLaload          = 0x2F
	OpFaload          = 0x30
	OpDaload          = 0x31
	OpAaload          = 0x32
	OpBaload          = 0x33
	OpCaload          = 0x34
	OpSaload          = 0x35
	OpIstore          = 0x36
	OpLstore          = 0x37
	OpFstore          = 0x38
	OpDstore          = 0x39
	OpAstore          = 0x3A
	OpIstore0         = 0x3B
	OpLstore0         = 0x3F
	OpFstore0         = 0x43
	OpDstore0         = 0x47
	OpAstore0         = 0x4B
	OpIastore         = 0x4F
	OpLastore         = 0x50
	OpFastore         = 0x51
	OpDastore         = 0x52
	OpAastore         = 0x53
	OpBastore         = 0x54
	OpCastore         = 0x55
	OpSastore         = 0x56
	OpPop             = 0x57
	OpPop2            = 0x58
	OpDup             = 0x59
	OpDupX1           = 0x5A
	OpDupX2           = 0x5B
	OpDup2            = 0x5C
	OpDup2X1          = 0x5D
	OpDup2X2          = 0x5E
	OpSwap            = 0x5F
	OpIadd            = 0x60
	OpLadd            = 0x61
	OpFadd            = 0x62
	OpDadd            = 0x63
	OpIsub            = 0x64
	OpLsub            = 0x65
	OpFsub            = 0x66
	OpDsub            = 0x67
	OpImul            = 0x68
	OpLmul            = 0x69
	OpFmul            = 0x6A
	OpDmul            = 0x6B
	OpIdiv            = 0x6C
	OpLdiv            = 0x6D
	OpFdiv            = 0x6E
	OpDdiv            = 0x6F
	OpIrem            = 0x70
	OpLrem            = 0x71
	OpFrem            = 0x72
	OpDrem            = 0x73
	OpIneg            = 0x74
	OpLneg            = 0x75
	OpFneg            = 0x76
	OpDneg            = 0x77
	OpIshl            = 0x78
	OpLshl            = 0x79
	OpIshr            = 0x7A
	OpLshr            = 0x7B
	OpIushr           = 0x7C
	OpLushr           = 0x7D
	OpIand            = 0x7E
	OpLand            = 0x7F
	OpIor             = 0x80
	OpLor             = 0x81
	OpIxor            = 0x82
	OpLxor            = 0x83
	OpIinc            = 0x84
	OpI2l             = 0x85
	OpI2f             = 0x86
	OpI2d             = 0x87
	OpL2i             = 0x88
	OpL2f             = 0x89
	OpL2d             = 0x8A
	OpF2i             = 0x8B
	OpF2l             = 0x8C
	OpF2d             = 0x8D
	OpD2i             = 0x8E
	OpD2l             = 0x8F
	OpD2f             = 0x90
	OpI2b             = 0x91
	OpI2c             = 0x92
	OpI2s             = 0x93
	OpLcmp            = 0x94
	OpFcmpl           = 0x95
	OpFcmpg           = 0x96
	OpDcmpl           = 0x97
	OpDcmpg           = 0x98
	OpIfeq            = 0x99
	OpIfne            = 0x9A
	OpIflt            = 0x9B
	OpIfge            = 0x9C
	OpIfgt            = 0x9D
	OpIfle            = 0x9E
	OpIfIcmpeq        = 0x9F
	OpIfIcmpne        = 0xA0
	OpIfIcmplt        = 0xA1
	OpIfIcmpge        = 0xA2
	OpIfIcmpgt        = 0xA3
	OpIfIcmple        = 0xA4
	OpIfAcmpeq        = 0xA5
	OpIfAcmpne        = 0xA6
	OpGoto            = 0xA7
	OpJsr             = 0xA8
	OpRet             = 0xA9
	OpTableswitch     = 0xAA
	OpLookupswitch    = 0xAB
	OpIreturn         = 0xAC
	OpLreturn         = 0xAD
	OpFreturn         = 0xAE
	OpDreturn         = 0xAF
	OpAreturn         = 0xB0
	OpReturn          = 0xB1
	OpGetstatic       = 0xB2
	OpPutstatic       = 0xB3
	OpGetfield        = 0xB4
	OpPutfield        = 0xB5
	OpInvokevirtual   = 0xB6
	OpInvokespecial   = 0xB7
	OpInvokestatic    = 0xB8
	OpInvokeinterface = 0xB9
	OpInvokedynamic   = 0xBA
	OpNew             = 0xBB
	OpNewarray        = 0xBC
	OpAnewarray       = 0xBD
	OpArraylength     = 0xBE
	OpAthrow          = 0xBF
	OpCheckcast       = 0xC0
	OpInstanceof      = 0xC1
	OpMonitorenter    = 0xC2
	OpMonitorexit     = 0xC3
	OpWide            = 0xC4
	OpMultianewarray  = 0xC5
	OpIfnull          = 0xC6
	OpIfnonnull       = 0xC7
	OpGotoW           = 0xC8
	OpJsrW            = 0xC9
)

// opNames holds the mnemonic of every zero-operand opcode. The generated
// code calls the BC_<MNEMONIC>() runtime macro for these.
var opNames = map[byte]string{
	OpNop: "NOP",

	OpIaload: "IALOAD", OpLaload: "LALOAD", OpFaload: "FALOAD", OpDaload: "DALOAD",
	OpAaload: "AALOAD", OpBaload: "BALOAD", OpCaload: "CALOAD", OpSaload: "SALOAD",
	OpIastore: "IASTORE", OpLastore: "LASTORE", OpFastore: "FASTORE", OpDastore: "DASTORE",
	OpAastore: "AASTORE", OpBastore: "BASTORE", OpCastore: "CASTORE", OpSastore: "SASTORE",

	OpPop: "POP", OpPop2: "POP2", OpDup: "DUP", OpDupX1: "DUP_X1", OpDupX2: "DUP_X2",
	OpDup2: "DUP2", OpDup2X1: "DUP2_X1", OpDup2X2: "DUP2_X2", OpSwap: "SWAP",

	OpIadd: "IADD", OpLadd: "LADD", OpFadd: "FADD", OpDadd: "DADD",
	OpIsub: "ISUB", OpLsub: "LSUB", OpFsub: "FSUB", OpDsub: "DSUB",
	OpImul: "IMUL", OpLmul: "LMUL", OpFmul: "FMUL", OpDmul: "DMUL",
	OpIdiv: "IDIV", OpLdiv: "LDIV", OpFdiv: "FDIV", OpDdiv: "DDIV",
	OpIrem: "IREM", OpLrem: "LREM", OpFrem: "FREM", OpDrem: "DREM",
	OpIneg: "INEG", OpLneg: "LNEG", OpFneg: "FNEG", OpDneg: "DNEG",
	OpIshl: "ISHL", OpLshl: "LSHL", OpIshr: "ISHR", OpLshr: "LSHR",
	OpIushr: "IUSHR", OpLushr: "LUSHR",
	OpIand: "IAND", OpLand: "LAND", OpIor: "IOR", OpLor: "LOR", OpIxor: "IXOR", OpLxor: "LXOR",

	OpI2l: "I2L", OpI2f: "I2F", OpI2d: "I2D", OpL2i: "L2I", OpL2f: "L2F", OpL2d: "L2D",
	OpF2i: "F2I", OpF2l: "F2L", OpF2d: "F2D", OpD2i: "D2I", OpD2l: "D2L", OpD2f: "D2F",
	OpI2b: "I2B", OpI2c: "I2C", OpI2s: "I2S",

	OpLcmp: "LCMP", OpFcmpl: "FCMPL", OpFcmpg: "FCMPG", OpDcmpl: "DCMPL", OpDcmpg: "DCMPG",

	OpIreturn: "IRETURN", OpLreturn: "LRETURN", OpFreturn: "FRETURN", OpDreturn: "DRETURN",
	OpAreturn: "ARETURN", OpReturn: "RETURN",

	OpArraylength: "ARRAYLENGTH", OpAthrow: "ATHROW",
	OpMonitorenter: "MONITORENTER", OpMonitorexit: "MONITOREXIT",
}

// Mnemonic returns the upper-case name of a zero-operand opcode, or "" for
// opcodes that carry operands.
func Mnemonic(op byte) string { return opNames[op] }

// loadStore maps every load/store opcode, including the _<n> short forms,
// to its generic opcode and slot kind.
var loadStore = map[byte]byte{
	OpIload: OpIload, OpLload: OpLload, OpFload: OpFload, OpDload: OpDload, OpAload: OpAload,
	OpIstore: OpIstore, OpLstore: OpLstore, OpFstore: OpFstore, OpDstore: OpDstore, OpAstore: OpAstore,
}

func init() {
	for i := byte(0); i < 4; i++ {
		loadStore[OpIload0+i] = OpIload
		loadStore[OpLload0+i] = OpLload
		loadStore[OpFload0+i] = OpFload
		loadStore[OpDload0+i] = OpDload
		loadStore[OpAload0+i] = OpAload
		loadStore[OpIstore0+i] = OpIstore
		loadStore[OpLstore0+i] = OpLstore
		loadStore[OpFstore0+i] = OpFstore
		loadStore[OpDstore0+i] = OpDstore
		loadStore[OpAstore0+i] = OpAstore
	}
}

// shortIndex returns the implicit local index of a load/store _<n> form.
func shortIndex(op byte) (int, bool) {
	switch {
	case op >= OpIload0 && op <= OpAload0+3:
		return int(op-OpIload0) % 4, true
	case op >= OpIstore0 && op <= OpAstore0+3:
		return int(op-OpIstore0) % 4, true
	}
	return 0, false
}

// newarray type codes
var arrayTypes = map[byte]descriptor.Kind{
	4: descriptor.Boolean, 5: descriptor.Char, 6: descriptor.Float, 7: descriptor.Double,
	8: descriptor.Byte, 9: descriptor.Short, 10: descriptor.Int, 11: descriptor.Long,
}
