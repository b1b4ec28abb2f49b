package devserver

import (
	"context"
	"fmt"
	"net"

	ferrors "git.home.luguber.info/inful/margin/internal/foundation/errors"
)

// CheckPortAvailability binds port once and releases it. It fails with a
// PortUnavailable error when something else holds the port.
func CheckPortAvailability(ctx context.Context, port int) error {
	ln, err := Listen(ctx, port)
	if err != nil {
		return err
	}
	return ln.Close()
}

// Listen binds port on all interfaces.
func Listen(ctx context.Context, port int) (net.Listener, error) {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, ferrors.PortUnavailable(port, err)
	}
	return ln, nil
}
