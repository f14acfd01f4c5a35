package extract

import (
	"bytes"
	"io"
	"mime"
	"strings"

	"github.com/emersion/go-message"
	"golang.org/x/net/html/charset"

	"firestige.xyz/spamprint/internal/log"
)

// messageBody returns the digestible text of one archived message.
// Unparseable headers fall back to the raw bytes. Text is digested as the
// bytes left after transfer decoding unless decodeCharsets is set.
func messageBody(raw []byte, decodeCharsets bool, logger log.Logger) io.Reader {
	e, err := message.Read(bytes.NewReader(raw))
	if e == nil {
		logger.Debugf("unparseable message headers, digesting raw message: %v", err)
		return bytes.NewReader(raw)
	}
	p := &partReader{log: logger, last: '\n', decodeCharsets: decodeCharsets}
	p.open(e, err)
	return p
}

// partReader flattens a MIME tree into one stream of text. Nested
// multiparts are tracked on an explicit stack; leaves that are not text
// contribute nothing. Each text leaf is terminated by a newline so the last
// line of one part never merges with the first line of the next.
type partReader struct {
	stack          []message.MultipartReader
	cur            io.Reader
	pending        []byte
	last           byte
	decodeCharsets bool
	log            log.Logger
}

func (p *partReader) Read(b []byte) (int, error) {
	for {
		if len(p.pending) > 0 {
			n := copy(b, p.pending)
			p.pending = p.pending[n:]
			p.last = b[n-1]
			return n, nil
		}

		if p.cur != nil {
			n, err := p.cur.Read(b)
			if n > 0 {
				p.last = b[n-1]
			}
			if err != nil {
				if err != io.EOF {
					p.log.Warnf("failed to decode message part: %v", err)
				}
				p.endLeaf()
			}
			if n > 0 {
				return n, nil
			}
			continue
		}

		if len(p.stack) == 0 {
			return 0, io.EOF
		}
		top := p.stack[len(p.stack)-1]
		part, err := top.NextPart()
		if part == nil {
			if err != io.EOF {
				p.log.Warnf("malformed multipart section: %v", err)
			}
			p.stack = p.stack[:len(p.stack)-1]
			continue
		}
		p.open(part, err)
	}
}

func (p *partReader) endLeaf() {
	p.cur = nil
	if p.last != '\n' {
		p.pending = []byte{'\n'}
	}
}

// open dispatches one entity by content type: multiparts are pushed, text
// becomes the current leaf, anything else is skipped. err is the non-fatal
// error go-message reported while preparing the entity body.
func (p *partReader) open(e *message.Entity, err error) {
	mediaType, params := contentType(e.Header.Get("Content-Type"))
	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		mr := e.MultipartReader()
		if params["boundary"] == "" || mr == nil {
			p.log.Warnf("%s without boundary, skipping", mediaType)
			return
		}
		p.stack = append(p.stack, mr)
	case strings.HasPrefix(mediaType, "text/"):
		p.cur = p.text(e, err, params["charset"])
	default:
		p.log.Debugf("skipping %s part", mediaType)
	}
}

// text returns the body of a text leaf. go-message has already removed the
// transfer encoding; without a registered charset reader it leaves non UTF-8
// text untouched and reports an unknown charset.
func (p *partReader) text(e *message.Entity, err error, cs string) io.Reader {
	switch {
	case err == nil:
		return e.Body
	case message.IsUnknownCharset(err):
		if !p.decodeCharsets {
			return e.Body
		}
		decoded, cerr := charset.NewReaderLabel(cs, e.Body)
		if cerr != nil {
			p.log.Debugf("unknown charset %q, using raw bytes: %v", cs, cerr)
			return e.Body
		}
		return decoded
	case message.IsUnknownEncoding(err):
		p.log.Debugf("unknown transfer encoding, using raw bytes: %v", err)
		return e.Body
	default:
		p.log.Debugf("digesting part as is: %v", err)
		return e.Body
	}
}

// contentType parses a Content-Type header, defaulting to text/plain when it
// is missing or malformed.
func contentType(v string) (string, map[string]string) {
	if v == "" {
		return "text/plain", nil
	}
	mediaType, params, err := mime.ParseMediaType(v)
	if err != nil {
		return "text/plain", nil
	}
	return mediaType, params
}
