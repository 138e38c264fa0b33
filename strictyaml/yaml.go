// Package strictyaml provides a strict YAML unmarshaller based on `go-yaml/yaml`
package strictyaml

import (
	"bytes"
	"errors"
	"io"

	"gopkg.in/yaml.v3"
)

// ErrEmptyDocument is returned when the input contains no YAML document.
var ErrEmptyDocument = errors.New("strictyaml: empty document")

// Unmarshal decodes the first YAML document in b into yamlObj. Any keys in
// the document which do not correspond to fields of the destination struct
// result in an error, as does more than one document in the input.
func Unmarshal(b []byte, yamlObj any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(b))
	decoder.KnownFields(true)

	err := decoder.Decode(yamlObj)
	if errors.Is(err, io.EOF) {
		return ErrEmptyDocument
	}
	if err != nil {
		return err
	}

	var extra yaml.Node
	err = decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	return errors.New("strictyaml: more than one document in input")
}
