package device

import "codeberg.org/mutker/minerdriver/internal/errors"

const (
	ErrConnect       = errors.ErrorCode("device_connect_failed")
	ErrWrite         = errors.ErrorCode("device_write_failed")
	ErrRead          = errors.ErrorCode("device_read_failed")
	ErrReplyTooLarge = errors.ErrorCode("device_reply_too_large")
	ErrEmptyReply    = errors.ErrorCode("device_empty_reply")
)

func init() {
	errors.Register(map[errors.ErrorCode]string{
		ErrConnect:       "Failed to connect to device",
		ErrWrite:         "Failed to send request to device",
		ErrRead:          "Failed to read reply from device",
		ErrReplyTooLarge: "Device reply exceeds size limit",
		ErrEmptyReply:    "Device closed the connection without replying",
	})
}
