package tools

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsExpectedClose(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", io.EOF, true},
		{"unexpected eof", fmt.Errorf("read payload: %w", io.ErrUnexpectedEOF), true},
		{"closed", &net.OpError{Op: "read", Err: net.ErrClosed}, true},
		{"reset", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, true},
		{"pipe", fmt.Errorf("write: %w", syscall.EPIPE), true},
		{"refused", syscall.ECONNREFUSED, false},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExpectedClose(tt.err))
		})
	}
}
