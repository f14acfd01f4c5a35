package protocol

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"firestige.xyz/spamprint/internal/account"
	"firestige.xyz/spamprint/internal/core"
)

// MaxClockSkew bounds how far a signed Time may be from the verifier's clock.
const MaxClockSkew = 300 * time.Second

// hashKey is hex(SHA1(username ":" keyhex)).
func hashKey(username, keyHex string) string {
	sum := sha1.Sum([]byte(username + ":" + strings.ToLower(keyHex)))
	return hex.EncodeToString(sum[:])
}

// sign is hex(SHA1(SHA1(body) ":" timestamp ":" hashedKey)) where body is the
// header block without Sig and without surrounding whitespace.
func sign(hashedKey string, timestamp int64, msg *Message) string {
	body := sha1.Sum([]byte(strings.TrimSpace(msg.String())))
	h := sha1.New()
	h.Write(body[:])
	fmt.Fprintf(h, ":%d:%s", timestamp, hashedKey)
	return hex.EncodeToString(h.Sum(nil))
}

// Wrap signs msg for acc and returns the datagram. msg itself is not
// modified.
func Wrap(acc account.Account, msg *Message, now time.Time) []byte {
	out := msg.Clone()
	out.Del(FieldSig)
	ts := now.Unix()
	out.Set(FieldUser, acc.Username())
	out.Set(FieldTime, strconv.FormatInt(ts, 10))
	out.Set(FieldSig, sign(hashKey(acc.Username(), acc.Keystuff().KeyHex()), ts, out))
	return out.Bytes()
}

// KeyLookup resolves the credential a signed message claims.
type KeyLookup func(username string) (account.Account, bool)

// Unwrap parses a signed datagram, checks its signature in constant time and
// rejects timestamps further than MaxClockSkew from now. The returned message
// no longer carries Sig.
func Unwrap(data []byte, lookup KeyLookup, now time.Time) (*Message, error) {
	msg, err := ParseMessage(data)
	if err != nil {
		return nil, err
	}
	user, ok := msg.Get(FieldUser)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", core.ErrIncompleteMessage, FieldUser)
	}
	rawTime, ok := msg.Get(FieldTime)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", core.ErrIncompleteMessage, FieldTime)
	}
	sig, ok := msg.Get(FieldSig)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", core.ErrIncompleteMessage, FieldSig)
	}
	ts, err := strconv.ParseInt(rawTime, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid time %q", core.ErrMalformedMessage, rawTime)
	}

	acc, ok := lookup(user)
	if !ok {
		return nil, fmt.Errorf("%w: unknown user %q", core.ErrSignatureMismatch, user)
	}

	msg.Del(FieldSig)
	want := sign(hashKey(acc.Username(), acc.Keystuff().KeyHex()), ts, msg)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(sig))) {
		return nil, fmt.Errorf("%w: user %q", core.ErrSignatureMismatch, user)
	}

	skew := now.Sub(time.Unix(ts, 0))
	if skew > MaxClockSkew || skew < -MaxClockSkew {
		return nil, fmt.Errorf("%w: %s off", core.ErrStaleTimestamp, skew.Round(time.Second))
	}
	return msg, nil
}
