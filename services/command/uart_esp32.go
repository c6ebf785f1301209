//go:build esp32

package command

import (
	"context"
	"io"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

func init() {
	UARTDial = uartDial
}

// uartDial opens UART1 on the configured pins. UART0 stays bound to the
// flash/monitor console.
func uartDial(ctx context.Context, u UARTConfig) (io.ReadWriteCloser, error) {
	hw := uartx.UART1
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: uint32(u.Baud),
		TX:       machine.Pin(u.TxPin),
		RX:       machine.Pin(u.RxPin),
	}); err != nil {
		return nil, err
	}
	return &uartPort{ctx: ctx, u: hw}, nil
}

// uartPort adapts uartx to io.ReadWriteCloser. Reads honour the link
// context so a reconfigure interrupts a blocked reader.
type uartPort struct {
	ctx context.Context
	u   *uartx.UART
}

func (p *uartPort) Read(b []byte) (int, error) {
	return p.u.RecvSomeContext(p.ctx, b)
}

func (p *uartPort) Write(b []byte) (int, error) { return p.u.Write(b) }

func (p *uartPort) Close() error { return nil }
