// Package glftpd reads state owned by the glftpd server: the shared-memory
// table of online users and the account database.
package glftpd

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"time"
)

// DefaultIPCKey is the key glftpd uses for its online users segment.
const DefaultIPCKey = 0xDEADBABE

// Layout of struct ONLINE in glftpd 2.x glconf.h. All fields are fixed
// width so the layout is the same for 32 and 64 bit builds.
const (
	offTagline     = 0
	lenTagline     = 64
	offUsername    = offTagline + lenTagline // 64
	lenUsername    = 24
	offStatus      = offUsername + lenUsername // 88
	lenStatus      = 256
	offSSLFlag     = offStatus + lenStatus // 344, int16
	offHost        = offSSLFlag + 2        // 346
	lenHost        = 256
	offCurrentDir  = offHost + lenHost // 602
	lenCurrentDir  = 256
	offGroupID     = 860 // int32, aligned after currentdir ends at 858
	offLoginTime   = 864 // int32
	offTStartSec   = 868 // struct timeval32
	offTStartUsec  = 872
	offTXferSec    = 876
	offTXferUsec   = 880
	offBytesXfer   = 888 // uint64, aligned
	offBytesTXfer  = 896 // uint64
	offProcID      = 904 // int32
	RecordSize     = 912 // padded to 8
	statusVerbSize = 5
)

// Session is an owned copy of one ONLINE record.
type Session struct {
	Tagline          string    `json:"tagline,omitempty"`
	Username         string    `json:"username"`
	GroupID          int32     `json:"group_id"`
	Host             string    `json:"host,omitempty"`
	CurrentDir       string    `json:"current_dir"`
	Status           string    `json:"status"`
	PID              int       `json:"pid"`
	LoginTime        time.Time `json:"login_time"`
	TransferStart    time.Time `json:"transfer_start"`
	BytesTransferred uint64    `json:"bytes_transferred"`
}

// Source provides the current snapshot of online sessions.
type Source interface {
	Sample(ctx context.Context) ([]Session, error)
}

// DecodeRecord decodes a single ONLINE record.
func DecodeRecord(b []byte) (Session, error) {
	if len(b) < RecordSize {
		return Session{}, fmt.Errorf("short record: %d bytes, want %d", len(b), RecordSize)
	}

	order := binary.NativeEndian
	i32 := func(off int) int32 { return int32(order.Uint32(b[off : off+4])) }

	return Session{
		Tagline:          cString(b[offTagline : offTagline+lenTagline]),
		Username:         cString(b[offUsername : offUsername+lenUsername]),
		Status:           cString(b[offStatus : offStatus+lenStatus]),
		Host:             cString(b[offHost : offHost+lenHost]),
		CurrentDir:       cString(b[offCurrentDir : offCurrentDir+lenCurrentDir]),
		GroupID:          i32(offGroupID),
		LoginTime:        time.Unix(int64(i32(offLoginTime)), 0),
		TransferStart:    time.Unix(int64(i32(offTStartSec)), int64(i32(offTStartUsec))*int64(time.Microsecond)),
		BytesTransferred: order.Uint64(b[offBytesXfer : offBytesXfer+8]),
		PID:              int(i32(offProcID)),
	}, nil
}

// DecodeTable decodes every complete record in a raw session table.
func DecodeTable(b []byte) ([]Session, error) {
	n := len(b) / RecordSize
	sessions := make([]Session, 0, n)
	for i := 0; i < n; i++ {
		s, err := DecodeRecord(b[i*RecordSize : (i+1)*RecordSize])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// StatusArgument returns the status string with its verb prefix removed,
// e.g. "STOR file.rar" yields "file.rar".
func StatusArgument(status string) string {
	if len(status) <= statusVerbSize {
		return ""
	}
	return status[statusVerbSize:]
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
