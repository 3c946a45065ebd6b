package errs

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Gateway error codes. 11xx transport/limits, 12xx auth, 13xx registry, 14xx control plane.
var (
	ErrConnLimit   = NewCodeError(1101, "connection limit reached")
	ErrIPConnLimit = NewCodeError(1102, "per-ip connection limit reached")
	ErrAuthFailed  = NewCodeError(1201, "authentication failed")
	ErrDupConn     = NewCodeError(1301, "connection already registered")
	ErrDupAction   = NewCodeError(1302, "action already registered")
	ErrBadCommand  = NewCodeError(1401, "invalid control command")
)

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// Wrap attaches a call stack so the origin survives logging at the boundary.
func (e *CodeError) Wrap() error {
	return errors.WithStack(e)
}

func (e *CodeError) WrapMsg(msg string) error {
	return errors.WithStack(e.WithDetail(msg))
}

// Is matches by code, so wrapped and detailed copies still compare equal.
func (e *CodeError) Is(err error) bool {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return ce != nil && ce.Code == e.Code
}
