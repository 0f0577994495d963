package redkv

// Message is an ordered sequence of wire tokens: either a single non-array
// token, or exactly one leading ArraySize(n) token followed by n non-array
// tokens. Nested arrays are not representable.
type Message []Token

// tokenToFrame lifts a single scalar token to its Frame equivalent. It must
// never be called with a TokArraySize token.
func tokenToFrame(t Token) Frame {
	switch t.Type {
	case TokSimpleString:
		return SimpleFrame(t.Str)
	case TokError:
		return ErrorFrame(t.Str)
	case TokInteger:
		return IntegerFrame(t.Int)
	case TokBulkString:
		return BulkFrame(t.Bulk)
	case TokNull:
		return NullFrame
	default:
		panic("redkv: ArraySize token cannot be lifted to a Frame directly")
	}
}

// frameToToken lowers a scalar Frame to its wire token. It must never be
// called with a FrameArray frame; arrays lower to a whole Message instead
// (see FrameToMessage).
func frameToToken(f Frame) Token {
	switch f.Type {
	case FrameSimple:
		return Token{Type: TokSimpleString, Str: f.Str}
	case FrameError:
		return Token{Type: TokError, Str: f.Str}
	case FrameInteger:
		return Token{Type: TokInteger, Int: f.Int}
	case FrameBulk:
		return Token{Type: TokBulkString, Bulk: f.Bulk, BulkLen: len(f.Bulk)}
	case FrameNull:
		return Token{Type: TokNull}
	default:
		panic("redkv: Array frame does not map to a single token")
	}
}

// MessageToFrame converts a fully parsed Message into its semantic Frame.
// An empty message is a programmer error: the parser never returns one
// without also returning a non-nil error, so callers must not reach this
// with a zero-length message.
func MessageToFrame(m Message) Frame {
	if len(m) == 0 {
		panic("redkv: empty RESP message")
	}

	head := m[0]
	if head.Type == TokArraySize {
		items := make([]Frame, 0, len(m)-1)
		for _, t := range m[1:] {
			items = append(items, tokenToFrame(t))
		}
		return ArrayFrame(items)
	}
	return tokenToFrame(head)
}

// FrameToMessage lowers a Frame back to its wire Message.
func FrameToMessage(f Frame) Message {
	if f.Type == FrameArray {
		msg := make(Message, 0, len(f.Array)+1)
		msg = append(msg, Token{Type: TokArraySize, ArrayN: len(f.Array)})
		for _, child := range f.Array {
			msg = append(msg, frameToToken(child))
		}
		return msg
	}
	return Message{frameToToken(f)}
}
