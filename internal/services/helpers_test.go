package services

import "github.com/pashagolub/pgxmock/v4"

type stringCapture struct {
	dst *string
}

func (c stringCapture) Match(v any) bool {
	s, ok := v.(string)
	if ok {
		*c.dst = s
	}
	return ok
}

func captureString(dst *string) pgxmock.Argument {
	return stringCapture{dst: dst}
}
