package switchbot

import "lockbutton-go/errcode"

type Kind uint8

const (
	KindSuccess Kind = iota
	KindAuthError
	KindAPIError
	KindNetworkTimeout
	KindTransportFailure
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindAuthError:
		return "auth_error"
	case KindAPIError:
		return "api_error"
	case KindNetworkTimeout:
		return "network_timeout"
	case KindTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Outcome classifies one request. HTTPStatus and Body are set when a
// response arrived; APIStatus is the statusCode field of a 200 body, 0 when
// absent. Err is the transport error for the two failure kinds.
type Outcome struct {
	Kind       Kind
	HTTPStatus int
	APIStatus  int
	Body       []byte
	Err        error
}

func (o Outcome) Success() bool { return o.Kind == KindSuccess }

// Retryable reports whether a second attempt may change the result.
func (o Outcome) Retryable() bool {
	return o.Kind != KindSuccess && o.Kind != KindAuthError
}

// Code maps the kind onto errcode.
func (o Outcome) Code() errcode.Code {
	switch o.Kind {
	case KindSuccess:
		return errcode.OK
	case KindAuthError:
		return errcode.AuthError
	case KindAPIError:
		return errcode.APIError
	case KindNetworkTimeout:
		return errcode.NetworkTimeout
	default:
		return errcode.TransportFailure
	}
}

// AsError is nil on success, otherwise an *errcode.E carrying the kind.
func (o Outcome) AsError(op string) error {
	if o.Kind == KindSuccess {
		return nil
	}
	e := &errcode.E{C: o.Code(), Op: op, Err: o.Err}
	if o.HTTPStatus != 0 {
		var b [20]byte
		e.Msg = "http " + itoa(b[:], int64(o.HTTPStatus))
	}
	return e
}
