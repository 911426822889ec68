package proxy

import (
	"fmt"
	"reflect"
	"time"

	"github.com/threadware/syncbridge/transport"
	"github.com/threadware/syncbridge/wire"
)

// SerializeArguments classifies outgoing call arguments: inline-safe
// primitives stay inline, well-known tokens travel by index, proxies
// travel as object-id references, and slices serialize element-wise so a
// list may freely mix literals and references.
func SerializeArguments(args []any) ([]transport.Argument, error) {
	out := make([]transport.Argument, 0, len(args))
	for i, arg := range args {
		a, err := serializeArgument(arg)
		if err != nil {
			return nil, fmt.Errorf("proxy: argument %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func serializeArgument(v any) (transport.Argument, error) {
	switch x := v.(type) {
	case nil:
		return transport.Scalar(wire.Null()), nil
	case bool:
		return transport.Scalar(wire.Bool(x)), nil
	case string:
		return transport.Scalar(wire.String(x)), nil
	case time.Time:
		return transport.Scalar(wire.Date(x)), nil
	case wire.Token:
		return transport.Scalar(wire.TokenValue(x)), nil
	case wire.Value:
		return transport.Scalar(x), nil
	case *Proxy:
		return transport.Scalar(wire.ObjectRef(x.id)), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return transport.Scalar(wire.Number(float64(rv.Int()))), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return transport.Scalar(wire.Number(float64(rv.Uint()))), nil
	case reflect.Float32, reflect.Float64:
		return transport.Scalar(wire.Number(rv.Float())), nil
	case reflect.Slice, reflect.Array:
		elems := make([]transport.Argument, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			e, err := serializeArgument(rv.Index(i).Interface())
			if err != nil {
				return transport.Argument{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems = append(elems, e)
		}
		return transport.List(elems...), nil
	}
	return transport.Argument{}, fmt.Errorf("cannot serialize %T; register it on the owner side instead", v)
}
