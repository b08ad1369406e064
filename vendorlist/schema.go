package vendorlist

import (
	"bytes"
	"errors"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema covers the parts of a Global Vendor List document a catalog is built from.
const documentSchema = `{
  "type": "object",
  "required": ["vendorListVersion", "vendors"],
  "properties": {
    "vendorListVersion": {"type": "integer", "minimum": 0},
    "purposes": {"type": "array", "items": {"$ref": "#/definitions/entry"}},
    "vendors": {"type": "array", "items": {"$ref": "#/definitions/entry"}}
  },
  "definitions": {
    "entry": {
      "type": "object",
      "required": ["id"],
      "properties": {"id": {"type": "integer"}}
    }
  }
}`

var schema *gojsonschema.Schema

func init() {
	var err error
	schema, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
	if err != nil {
		panic("vendor list schema does not compile: " + err.Error())
	}
}

func validateDocument(data []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return err
	}
	if !result.Valid() {
		errBuilder := bytes.NewBuffer(make([]byte, 0, 200))
		for i, err := range result.Errors() {
			if i > 0 {
				errBuilder.WriteString("; ")
			}
			errBuilder.WriteString(err.String())
		}
		return errors.New(errBuilder.String())
	}
	return nil
}
