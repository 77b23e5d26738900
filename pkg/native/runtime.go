// Package native describes what the C runtime provides or needs beyond the
// translated program: the classes its native code calls into and the
// methods replaced by hand-written implementations.
package native

// Runtime lists the classes the C runtime refers to directly. They are
// always translated, whether or not the program uses them.
var Runtime = []string{
	"java/io/File",
	"java/io/FileInputStream",
	"java/io/FileOutputStream",
	"java/io/NativeOutputStream",
	"java/lang/ArithmeticException",
	"java/lang/Boolean",
	"java/lang/Byte",
	"java/lang/Character",
	"java/lang/Class",
	"java/lang/ClassNotFoundException",
	"java/lang/Double",
	"java/lang/Enum",
	"java/lang/ExceptionInInitializerError",
	"java/lang/Float",
	"java/lang/IllegalMonitorStateException",
	"java/lang/Integer",
	"java/lang/InterruptedException",
	"java/lang/Long",
	"java/lang/Math",
	"java/lang/NoSuchMethodError",
	"java/lang/OutOfMemoryError",
	"java/lang/Runtime",
	"java/lang/Short",
	"java/lang/StackOverflowError",
	"java/lang/String",
	"java/lang/StringBuilder",
	"java/lang/StringToReal",
	"java/lang/System",
	"java/lang/Thread",
	"java/lang/Thread$UncaughtExceptionHandler",
	"java/lang/Throwable",
	"java/lang/ref/WeakReference",
	"java/lang/reflect/Array",
	"java/lang/reflect/Constructor",
	"java/lang/reflect/Field",
	"java/lang/reflect/InvocationTargetException",
	"java/lang/reflect/Method",
	"java/lang/reflect/Proxy",
	"java/nio/Buffer",
	"java/nio/NativeUtils",
	"java/text/DateFormat",
	"java/util/HashMap",
	"java/util/Locale",
	"java/util/zip/CRC32",
	"java/util/zip/Deflater",
	"java/util/zip/Inflater",
	"java/util/zip/ZipFile",
}

// IsRuntime reports whether name is in Runtime.
func IsRuntime(name string) bool {
	for _, r := range Runtime {
		if r == name {
			return true
		}
	}
	return false
}
