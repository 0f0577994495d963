/*
Package redkv implements a small in-memory key-value server.

This file is the Interpreter: it maps one parsed Frame to a keyspace
operation and a reply Frame. It is pure with respect to the frame itself;
all side effects go through the Store.
*/
package redkv

import "bytes"

var pongFrame = SimpleFrame("PONG")

// Interpreter dispatches a request Frame against a Store. TTL arithmetic is
// resolved inside the Store itself, against whichever Clock it was built
// with.
type Interpreter struct {
	Store *Store
}

// NewInterpreter builds an Interpreter over store.
func NewInterpreter(store *Store) *Interpreter {
	return &Interpreter{Store: store}
}

// Interpret evaluates one request frame and returns the reply frame.
//
// Non-Array input, an empty Array, or an unrecognized command all fall
// back to Simple("PONG") - this mirrors the original implementation's
// permissive behavior rather than returning a protocol Error (see the
// open question on fallback behavior).
func (in *Interpreter) Interpret(req Frame) Frame {
	if req.Type != FrameArray || len(req.Array) == 0 {
		return pongFrame
	}

	args := req.Array[1:]
	switch commandOf(req) {
	case CmdPing:
		return pongFrame
	case CmdEcho:
		return in.interpretEcho(args)
	case CmdGet:
		return in.interpretGet(args)
	case CmdSet:
		return in.interpretSet(args)
	case CmdDBSize:
		return IntegerFrame(int64(in.Store.Len()))
	case CmdFlushAll, CmdFlushDB:
		in.Store.Flush()
		return SimpleFrame("OK")
	default:
		return pongFrame
	}
}

func (in *Interpreter) interpretEcho(args []Frame) Frame {
	if len(args) != 1 || args[0].Type != FrameBulk {
		return pongFrame
	}
	return BulkFrame(args[0].Bulk)
}

func (in *Interpreter) interpretGet(args []Frame) Frame {
	if len(args) != 1 || args[0].Type != FrameBulk {
		return NullFrame
	}
	value, ok := in.Store.Get(string(args[0].Bulk))
	if !ok {
		return NullFrame
	}
	return BulkFrame(value)
}

func (in *Interpreter) interpretSet(args []Frame) Frame {
	if len(args) < 2 || args[0].Type != FrameBulk || args[1].Type != FrameBulk {
		return NullFrame
	}
	key, value := args[0].Bulk, args[1].Bulk
	flags := parseSetFlags(args[2:])

	var priorValue []byte
	var priorExists bool
	if flags.Get {
		priorValue, priorExists = in.Store.Get(string(key))
	}

	wrote := in.Store.Set(string(key), value, flags)

	if flags.Get {
		if !priorExists {
			return NullFrame
		}
		return BulkFrame(priorValue)
	}
	if !wrote {
		return NullFrame
	}
	return SimpleFrame("OK")
}

// parseSetFlags parses the SET option grammar in fixed positional order:
// an optional NX/XX existence segment, an optional GET segment, then an
// optional TTL segment (KEEPTTL, or a kind+value pair). Any segment that
// doesn't match at its position is simply absent; parsing never fails,
// it only stops consuming options early.
func parseSetFlags(opts []Frame) SetFlags {
	var flags SetFlags
	i := 0

	if i < len(opts) && opts[i].Type == FrameBulk {
		switch {
		case bytes.EqualFold(opts[i].Bulk, []byte("NX")):
			flags.Exist = ExistNX
			i++
		case bytes.EqualFold(opts[i].Bulk, []byte("XX")):
			flags.Exist = ExistXX
			i++
		}
	}

	if i < len(opts) && opts[i].Type == FrameBulk && bytes.EqualFold(opts[i].Bulk, []byte("GET")) {
		flags.Get = true
		i++
	}

	if i < len(opts) && opts[i].Type == FrameBulk {
		if bytes.EqualFold(opts[i].Bulk, []byte("KEEPTTL")) {
			flags.TTL = TTLSpec{Kind: TTLKeep}
		} else if i+1 < len(opts) && opts[i+1].Type == FrameBulk {
			if kind, ok := ttlKindFromBytes(opts[i].Bulk); ok {
				if value, ok := parseUintBytes(opts[i+1].Bulk); ok {
					flags.TTL = TTLSpec{Kind: kind, Value: value}
				}
			}
		}
	}

	return flags
}

func ttlKindFromBytes(b []byte) (TTLKind, bool) {
	switch {
	case bytes.EqualFold(b, []byte("EX")):
		return TTLEX, true
	case bytes.EqualFold(b, []byte("PX")):
		return TTLPX, true
	case bytes.EqualFold(b, []byte("EXAT")):
		return TTLEXAT, true
	case bytes.EqualFold(b, []byte("PXAT")):
		return TTLPXAT, true
	default:
		return TTLNone, false
	}
}

func parseUintBytes(b []byte) (uint64, bool) {
	var n uint64
	if len(b) == 0 {
		return 0, false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint64(c-'0')
	}
	return n, true
}
