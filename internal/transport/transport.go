// Package transport resolves the receiver's raw byte source (file, serial
// device, TCP socket, or stdin) and wraps it with the SBF or ASCII page
// reader that yields page.HalfPage values for the engine. Raw byte
// transport is explicitly out of core scope per spec.md §1; this package
// is the boundary adapter, grounded on the teacher's resource-resolution
// idiom (reset/main.go's defaultConfigPath) and the pack's serial/CRC
// dependencies.
package transport

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/daedaluz/goserial"
)

// Open resolves an input source string into a readable byte stream.
// Recognized forms, per spec.md §6:
//
//	filepath          - read bytes from a file
//	file:filepath      - same, explicit scheme
//	serial:dev:baudrate - serial device
//	net:ip:port        - TCP connection
//	"" (empty)         - stdin
func Open(spec string) (io.ReadCloser, error) {
	switch {
	case spec == "":
		return io.NopCloser(os.Stdin), nil
	case strings.HasPrefix(spec, "file:"):
		return openFile(strings.TrimPrefix(spec, "file:"))
	case strings.HasPrefix(spec, "serial:"):
		return openSerial(strings.TrimPrefix(spec, "serial:"))
	case strings.HasPrefix(spec, "net:"):
		return openNet(strings.TrimPrefix(spec, "net:"))
	default:
		return openFile(spec)
	}
}

func openFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transport: open file %q: %w", path, err)
	}
	return f, nil
}

func openNet(rest string) (io.ReadCloser, error) {
	host, port, ok := strings.Cut(rest, ":")
	if !ok {
		return nil, fmt.Errorf("transport: net source must be net:ip:port, got %q", rest)
	}
	conn, err := net.Dial("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s:%s: %w", host, port, err)
	}
	return conn, nil
}

func openSerial(rest string) (io.ReadCloser, error) {
	dev, baudStr, ok := strings.Cut(rest, ":")
	if !ok {
		return nil, fmt.Errorf("transport: serial source must be serial:dev:baudrate, got %q", rest)
	}
	baud, err := strconv.Atoi(baudStr)
	if err != nil {
		return nil, fmt.Errorf("transport: serial baudrate %q: %w", baudStr, err)
	}

	port, err := serial.Open(dev, serial.NewOptions())
	if err != nil {
		return nil, fmt.Errorf("transport: open serial device %q: %w", dev, err)
	}
	attrs, err := port.GetAttr2()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: get attrs for %q: %w", dev, err)
	}
	attrs.MakeRaw()
	attrs.SetCustomSpeed(uint32(baud))
	if err := port.SetAttr2(serial.TCSANOW, attrs); err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: configure %q at %d baud: %w", dev, baud, err)
	}
	return port, nil
}
