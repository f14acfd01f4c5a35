// Package account holds the per-server credentials used to sign requests.
package account

import (
	"bufio"
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"regexp"
	"strings"

	"firestige.xyz/spamprint/internal/core"
	"firestige.xyz/spamprint/internal/log"
)

// AnonymousUser is the username sent when no credential is configured.
const AnonymousUser = "anonymous"

var usernamePattern = regexp.MustCompile(`^[-.\w]+$`)

// Keystuff is a (salt, key) pair. The salt may be absent, the key may not.
type Keystuff struct {
	salt *big.Int
	key  *big.Int
}

// ParseKeystuff parses "salthex,keyhex". Either side may be empty, which
// means absent, but the key is required.
func ParseKeystuff(s string) (Keystuff, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Keystuff{}, fmt.Errorf("%w: want 2 comma separated parts, got %d", core.ErrInvalidKeystuff, len(parts))
	}
	salt, err := parseHex(parts[0])
	if err != nil {
		return Keystuff{}, err
	}
	key, err := parseHex(parts[1])
	if err != nil {
		return Keystuff{}, err
	}
	return NewKeystuff(salt, key)
}

// NewKeystuff builds a Keystuff. salt may be nil.
func NewKeystuff(salt, key *big.Int) (Keystuff, error) {
	if key == nil {
		return Keystuff{}, fmt.Errorf("%w: no key information", core.ErrInvalidKeystuff)
	}
	if key.Sign() < 0 || (salt != nil && salt.Sign() < 0) {
		return Keystuff{}, fmt.Errorf("%w: negative value", core.ErrInvalidKeystuff)
	}
	return Keystuff{salt: salt, key: key}, nil
}

func parseHex(h string) (*big.Int, error) {
	h = strings.TrimSpace(h)
	if h == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(h, 16)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: invalid hex %q", core.ErrInvalidKeystuff, h)
	}
	return v, nil
}

// Salt returns the salt, or nil when absent.
func (k Keystuff) Salt() *big.Int { return k.salt }

// Key returns the key.
func (k Keystuff) Key() *big.Int { return k.key }

// KeyHex is the lowercase hex form of the key, without leading zeros.
func (k Keystuff) KeyHex() string {
	if k.key == nil {
		return "0"
	}
	return k.key.Text(16)
}

// String renders "salthex,keyhex" with an empty salt when absent.
func (k Keystuff) String() string {
	salt := ""
	if k.salt != nil {
		salt = k.salt.Text(16)
	}
	return salt + "," + k.KeyHex()
}

// Account is a validated (username, keystuff) credential.
type Account struct {
	username string
	keystuff Keystuff
}

// NewAccount validates the username against ^[-.\w]+$.
func NewAccount(username string, keystuff Keystuff) (Account, error) {
	if !usernamePattern.MatchString(username) {
		return Account{}, fmt.Errorf("%w: %q", core.ErrInvalidUsername, username)
	}
	if keystuff.key == nil {
		return Account{}, fmt.Errorf("%w: no key information", core.ErrInvalidKeystuff)
	}
	return Account{username: username, keystuff: keystuff}, nil
}

// Anonymous is the credential used for servers without a configured account.
func Anonymous() Account {
	return Account{username: AnonymousUser, keystuff: Keystuff{key: new(big.Int)}}
}

func (a Account) Username() string   { return a.username }
func (a Account) Keystuff() Keystuff { return a.keystuff }

// Accounts maps server addresses to credentials.
type Accounts map[Address]Account

// Lookup never fails: unmapped addresses get the anonymous account.
func (m Accounts) Lookup(addr Address) Account {
	if acc, ok := m[addr]; ok {
		return acc
	}
	return Anonymous()
}

// LoadAccounts reads lines of "host : port : username : keystuff". Blank
// lines and lines starting with '#' are ignored; invalid lines are skipped
// with a warning naming the line number.
func LoadAccounts(r io.Reader, logger log.Logger) (Accounts, error) {
	if logger == nil {
		logger = log.GetLogger()
	}
	accounts := Accounts{}
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addr, acc, err := parseAccountLine(line)
		if err != nil {
			logger.Warnf("account file: invalid line %d: %v", lineno, err)
			continue
		}
		accounts[addr] = acc
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}
	return accounts, nil
}

func parseAccountLine(line string) (Address, Account, error) {
	fields := strings.Split(line, ":")
	if len(fields) != 4 {
		return Address{}, Account{}, errors.New("wrong number of parts")
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	addr, err := NewAddress(fields[0], fields[1])
	if err != nil {
		return Address{}, Account{}, err
	}
	ks, err := ParseKeystuff(fields[3])
	if err != nil {
		return Address{}, Account{}, err
	}
	acc, err := NewAccount(fields[2], ks)
	if err != nil {
		return Address{}, Account{}, err
	}
	return addr, acc, nil
}

// LoadAccountsFile reads path. A missing file yields an empty map.
func LoadAccountsFile(path string, logger log.Logger) (Accounts, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Accounts{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts file: %w", err)
	}
	defer f.Close()
	return LoadAccounts(f, logger)
}

// GenerateKeystuff derives a fresh credential from a passphrase:
// salt = SHA1(20 random bytes), key = SHA1(salt || passphrase).
func GenerateKeystuff(passphrase string, rand io.Reader) (Keystuff, error) {
	seed := make([]byte, sha1.Size)
	if _, err := io.ReadFull(rand, seed); err != nil {
		return Keystuff{}, fmt.Errorf("failed to read random salt: %w", err)
	}
	salt := sha1.Sum(seed)

	h := sha1.New()
	h.Write(salt[:])
	h.Write([]byte(passphrase))
	key := h.Sum(nil)

	return NewKeystuff(new(big.Int).SetBytes(salt[:]), new(big.Int).SetBytes(key))
}
