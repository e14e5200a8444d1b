package mcp

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mark3labs/mcp-go/mcp"
)

// bindArguments decodes the arguments of request into target using json
// tags. Clients often send every parameter as a string, so JSON-encoded
// arrays, booleans and numbers inside strings are decoded as well.
func bindArguments[T any](request mcp.CallToolRequest, target *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			jsonStringHook,
			mapstructure.StringToSliceHookFunc(","),
		),
		Result:  target,
		TagName: "json",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(request.GetArguments())
}

// jsonStringHook turns a string holding JSON into the value it encodes when
// the target is a slice, bool or number. Anything else passes through.
func jsonStringHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	raw := strings.TrimSpace(data.(string))
	if raw == "" {
		return data, nil
	}

	switch {
	case to.Kind() == reflect.Slice && strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]"):
		slicePtr := reflect.New(to)
		if err := json.Unmarshal([]byte(raw), slicePtr.Interface()); err == nil {
			return slicePtr.Elem().Interface(), nil
		}
	case to.Kind() == reflect.Bool && (raw == "true" || raw == "false"):
		return raw == "true", nil
	case to.Kind() >= reflect.Int && to.Kind() <= reflect.Float64:
		var n json.Number
		if err := json.Unmarshal([]byte(raw), &n); err == nil {
			return n, nil
		}
	}
	return data, nil
}
