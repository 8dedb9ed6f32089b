package ipc

import (
	"errors"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"syscall"
	"time"
)

// ErrDaemonNotRunning indicates nothing is listening on the socket.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path. A missing socket
// or refused connection is reported as ErrDaemonNotRunning.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		if IsUnavailable(err) {
			return nil, errors.Join(ErrDaemonNotRunning, err)
		}
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// IsUnavailable reports whether err means no daemon is listening.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrDaemonNotRunning) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call(ServiceName+".Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Devices lists the registered devices.
func (c *Client) Devices() (*DevicesResponse, error) {
	var resp DevicesResponse
	if err := c.client.Call(ServiceName+".Devices", DevicesRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon to drain its devices and exit.
func (c *Client) Shutdown(reason string) (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.client.Call(ServiceName+".Shutdown", ShutdownRequest{Reason: reason}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a test notification.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call(ServiceName+".TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
