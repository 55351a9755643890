package dispatch

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/mitchellh/mapstructure"
)

// BindTag is the struct tag Bind reads field names from.
const BindTag = "form"

var fieldName = regexp.MustCompile(`'([^']*)'`)

// Bind decodes the request parameters and UI locals into dst, which must
// be a pointer to a struct. Inputs are weakly typed, so "42" binds to an
// int field. Locals win over path parameters, which win over posted
// fields, which win over the query.
//
// Every decoding problem is recorded on the exchange as a field error and
// the returned error wraps ErrBinding.
func Bind(req *Request, dst any) error {
	x := req.Exchange
	input := make(map[string]any)

	for k, vs := range x.QueryValues() {
		if len(vs) > 0 {
			input[k] = vs[0]
		}
	}
	for k, vs := range x.PostedValues() {
		if len(vs) > 0 {
			input[k] = vs[0]
		}
	}
	for k, v := range x.PathParams() {
		input[k] = v
	}
	for k, v := range req.Params {
		input[k] = v
	}
	for k, v := range x.Locals() {
		input[k] = v.Interface()
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          BindTag,
		Result:           dst,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBinding, err)
	}

	if err := decoder.Decode(input); err != nil {
		var merr *mapstructure.Error
		if errors.As(err, &merr) {
			for _, msg := range merr.Errors {
				field := ""
				if m := fieldName.FindStringSubmatch(msg); m != nil {
					field = m[1]
				}
				x.AddError(field, msg)
			}
		} else {
			x.AddError("", err.Error())
		}
		return fmt.Errorf("%w: %v", ErrBinding, err)
	}
	return nil
}
