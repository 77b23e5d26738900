package translator

import (
	"fmt"

	"github.com/daimatz/jvmc/pkg/sink"
	"github.com/fxamacker/cbor/v2"
)

// ManifestName is the file holding the dependency manifest.
const ManifestName = "manifest.cbor"

// Manifest records what a batch produced.
type Manifest struct {
	Main    string              `cbor:"main,omitempty"`
	Classes map[string][]string `cbor:"classes"`
	Missing []string            `cbor:"missing,omitempty"`
}

var manifestEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("translator: failed to create CBOR enc mode: %v", err))
	}
	manifestEncMode = em
}

// MarshalManifest serializes m in canonical CBOR so equal manifests are
// byte-identical.
func MarshalManifest(m *Manifest) ([]byte, error) {
	return manifestEncMode.Marshal(m)
}

// UnmarshalManifest deserializes a manifest.
func UnmarshalManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("translator: unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Manifest builds the manifest of a result.
func (r *Result) Manifest() *Manifest {
	m := &Manifest{Classes: make(map[string][]string, len(r.Units)), Missing: r.Missing}
	if r.Main != nil {
		m.Main = r.Main.Name
	}
	for _, u := range r.Units {
		m.Classes[u.Class] = u.Dependencies
	}
	return m
}

// Write stores every unit, the config header, main.c when there is a main
// class, and the manifest.
func (t *Translator) Write(r *Result, s sink.Sink) error {
	for _, u := range r.Units {
		if err := s.Write(u.Ident()+".h", u.Header); err != nil {
			return err
		}
		if err := s.Write(u.Ident()+".c", u.Source); err != nil {
			return err
		}
	}
	if err := s.Write("cn1_config.h", t.Config.Header()); err != nil {
		return err
	}
	if r.Main != nil {
		if err := s.Write("main.c", mainSource(r.Main.Ident(), r.Main.MainMethod().Symbol())); err != nil {
			return err
		}
	}
	data, err := MarshalManifest(r.Manifest())
	if err != nil {
		return err
	}
	return s.Write(ManifestName, data)
}

func mainSource(ident, entry string) []byte {
	return []byte(fmt.Sprintf("#include \"cn1_globals.h\"\n#include \"%s.h\"\n\nint main() {\n    runVM(%s);\n    return 0;\n}\n",
		ident, entry))
}
