package redkv

import "bytes"

// CommandFromBytes maps a command bulk to a Command, matching ASCII
// case-insensitively. Anything not recognized is CmdUndefined.
func CommandFromBytes(b []byte) Command {
	switch {
	case bytes.EqualFold(b, []byte("PING")):
		return CmdPing
	case bytes.EqualFold(b, []byte("ECHO")):
		return CmdEcho
	case bytes.EqualFold(b, []byte("GET")):
		return CmdGet
	case bytes.EqualFold(b, []byte("SET")):
		return CmdSet
	case bytes.EqualFold(b, []byte("DBSIZE")):
		return CmdDBSize
	case bytes.EqualFold(b, []byte("FLUSHALL")):
		return CmdFlushAll
	case bytes.EqualFold(b, []byte("FLUSHDB")):
		return CmdFlushDB
	default:
		return CmdUndefined
	}
}

// commandOf extracts the Command identified by a frame's head element. Any
// non-Array frame, or an Array whose head is not a Bulk, is CmdUndefined.
func commandOf(f Frame) Command {
	if f.Type != FrameArray || len(f.Array) == 0 {
		return CmdUndefined
	}
	head := f.Array[0]
	if head.Type != FrameBulk {
		return CmdUndefined
	}
	return CommandFromBytes(head.Bulk)
}
