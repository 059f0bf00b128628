package repository

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/okian/topboard/internal/domain/ranking"
)

// Reply is one decoded command reply from the HTTP endpoint.
type Reply struct {
	v gjson.Result
}

var (
	errUnparsable  = errors.New("unparsable reply body")
	errUnexpected  = errors.New("unexpected reply shape")
	errNotInteger  = errors.New("reply is not an integer")
	errNotNumeric  = errors.New("reply is not numeric")
	errStatusCode  = errors.New("unexpected HTTP status")
	errReplyErrMsg = errors.New("store replied with error")
)

// normalizeReply turns an HTTP response into a Reply. Accepted bodies are
// a bare JSON value, a {"result": value} envelope, or any other object, in
// which case the first array found depth-first is the value and the object
// itself is the fallback. An {"error": ...} envelope is a protocol error.
func normalizeReply(status int, body []byte) (Reply, error) {
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return Reply{}, &CommandError{
			Backend: backendREST,
			Status:  status,
			Body:    string(body),
			Kind:    ranking.ErrStoreUnavailable,
			Err:     errStatusCode,
		}
	}
	if !gjson.ValidBytes(body) {
		return Reply{}, &CommandError{
			Backend: backendREST,
			Status:  status,
			Body:    string(body),
			Kind:    ranking.ErrStoreProtocol,
			Err:     errUnparsable,
		}
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return Reply{v: root}, nil
	}
	if e := root.Get("error"); e.Exists() {
		return Reply{}, &CommandError{
			Backend: backendREST,
			Status:  status,
			Body:    string(body),
			Kind:    ranking.ErrStoreProtocol,
			Err:     fmt.Errorf("%w: %s", errReplyErrMsg, e.String()),
		}
	}
	if r := root.Get("result"); r.Exists() {
		return Reply{v: r}, nil
	}
	if arr, ok := firstArray(root); ok {
		return Reply{v: arr}, nil
	}
	return Reply{v: root}, nil
}

// firstArray walks an object's values depth-first for the first array.
func firstArray(obj gjson.Result) (gjson.Result, bool) {
	var found gjson.Result
	ok := false
	obj.ForEach(func(_, v gjson.Result) bool {
		switch {
		case v.IsArray():
			found, ok = v, true
		case v.IsObject():
			found, ok = firstArray(v)
		}
		return !ok
	})
	return found, ok
}

// IsNil reports a null reply.
func (r Reply) IsNil() bool {
	return r.v.Type == gjson.Null
}

// Text returns a scalar reply as a string. found is false for null.
func (r Reply) Text() (string, bool, error) {
	switch r.v.Type {
	case gjson.Null:
		return "", false, nil
	case gjson.String:
		return r.v.Str, true, nil
	case gjson.Number, gjson.True, gjson.False:
		return r.v.Raw, true, nil
	default:
		return "", false, errUnexpected
	}
}

// Int returns an integer reply. Numeric strings are accepted.
func (r Reply) Int() (int64, error) {
	switch r.v.Type {
	case gjson.Number:
		f := r.v.Num
		if f != math.Trunc(f) {
			return 0, errNotInteger
		}
		return r.v.Int(), nil
	case gjson.String:
		n, err := strconv.ParseInt(r.v.Str, 10, 64)
		if err != nil {
			return 0, errNotInteger
		}
		return n, nil
	case gjson.True:
		return 1, nil
	case gjson.False:
		return 0, nil
	default:
		return 0, errNotInteger
	}
}

// Float returns a numeric reply. found is false for null.
func (r Reply) Float() (float64, bool, error) {
	switch r.v.Type {
	case gjson.Null:
		return 0, false, nil
	case gjson.Number:
		return r.v.Num, true, nil
	case gjson.String:
		f, err := strconv.ParseFloat(r.v.Str, 64)
		if err != nil {
			return 0, false, errNotNumeric
		}
		return f, true, nil
	default:
		return 0, false, errNotNumeric
	}
}

// List returns an array reply as strings. Nested arrays, as sent for
// WITHSCORES pairs by RESP3 proxies, are flattened one level. Null is an
// empty list.
func (r Reply) List() ([]string, error) {
	if r.v.Type == gjson.Null {
		return []string{}, nil
	}
	if !r.v.IsArray() {
		return nil, errUnexpected
	}
	out := []string{}
	var err error
	r.v.ForEach(func(_, el gjson.Result) bool {
		if el.IsArray() {
			el.ForEach(func(_, inner gjson.Result) bool {
				out, err = appendScalar(out, inner)
				return err == nil
			})
			return err == nil
		}
		out, err = appendScalar(out, el)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func appendScalar(out []string, el gjson.Result) ([]string, error) {
	switch el.Type {
	case gjson.String:
		return append(out, el.Str), nil
	case gjson.Number:
		return append(out, el.Raw), nil
	case gjson.Null:
		return append(out, ""), nil
	default:
		return out, errUnexpected
	}
}
