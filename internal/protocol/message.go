// Package protocol implements the datagram message format: an ordered block
// of "Name: value" header lines, the typed requests and responses built on
// it, and the signed envelope requests travel in.
package protocol

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"firestige.xyz/spamprint/internal/core"
)

// Message is an ordered set of header fields. Names are matched
// case-insensitively and keep their first spelling on output.
type Message struct {
	names  []string
	values map[string]string
}

func NewMessage() *Message {
	return &Message{values: make(map[string]string)}
}

func fold(name string) string { return strings.ToLower(name) }

// Set replaces the value of name, appending it if absent.
func (m *Message) Set(name, value string) {
	k := fold(name)
	if _, ok := m.values[k]; !ok {
		m.names = append(m.names, name)
	}
	m.values[k] = value
}

// Get returns the value of name.
func (m *Message) Get(name string) (string, bool) {
	v, ok := m.values[fold(name)]
	return v, ok
}

// Del removes name.
func (m *Message) Del(name string) {
	k := fold(name)
	if _, ok := m.values[k]; !ok {
		return
	}
	delete(m.values, k)
	for i, n := range m.names {
		if fold(n) == k {
			m.names = append(m.names[:i:i], m.names[i+1:]...)
			break
		}
	}
}

// Names returns the field names in order.
func (m *Message) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Clone returns an independent copy.
func (m *Message) Clone() *Message {
	c := NewMessage()
	for _, n := range m.names {
		c.Set(n, m.values[fold(n)])
	}
	return c
}

// String renders the header block followed by the terminating blank line.
func (m *Message) String() string {
	var b strings.Builder
	for _, n := range m.names {
		b.WriteString(n)
		b.WriteString(": ")
		b.WriteString(m.values[fold(n)])
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}

func (m *Message) Bytes() []byte { return []byte(m.String()) }

// ParseMessage reads a header block. Parsing stops at the first blank line;
// lines starting with a space or tab continue the previous field.
func ParseMessage(data []byte) (*Message, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty message", core.ErrMalformedMessage)
	}
	m := NewMessage()
	last := ""
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			if last == "" {
				return nil, fmt.Errorf("%w: continuation without field at line %d", core.ErrMalformedMessage, lineno)
			}
			v, _ := m.Get(last)
			m.Set(last, v+" "+strings.TrimSpace(line))
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return nil, fmt.Errorf("%w: invalid header at line %d", core.ErrMalformedMessage, lineno)
		}
		m.Set(name, strings.TrimSpace(value))
		last = name
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedMessage, err)
	}
	return m, nil
}
