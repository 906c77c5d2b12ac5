package types

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding"
	"encoding/base64"
	"errors"

	"gopkg.in/yaml.v3"
)

var _ yaml.Marshaler = (*Identity)(nil)
var _ encoding.TextUnmarshaler = (*Identity)(nil)

// Identity wraps the portal's ed25519 signing key. The config file stores
// only the base64-encoded 32-byte seed; the key is derived on demand.
type Identity struct {
	seed string
	key  ed25519.PrivateKey
}

func NewIdentity() Identity {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		panic(err)
	}

	return Identity{seed: base64.StdEncoding.EncodeToString(seed)}
}

func NewIdentityFromSeed(seed string) *Identity {
	return &Identity{seed: seed}
}

func (i *Identity) derive() error {
	seed, err := base64.StdEncoding.DecodeString(i.seed)
	if err != nil {
		return err
	}

	if len(seed) != ed25519.SeedSize {
		return errors.New("identity seed must be 32 bytes")
	}

	i.key = ed25519.NewKeyFromSeed(seed)

	return nil
}

func (i Identity) Valid() bool {
	cp := i
	return cp.derive() == nil
}

func (i *Identity) PrivateKey() ed25519.PrivateKey {
	if len(i.key) != ed25519.PrivateKeySize {
		if err := i.derive(); err != nil {
			panic(err)
		}
	}

	return i.key
}

func (i *Identity) PublicKey() ed25519.PublicKey {
	return i.PrivateKey().Public().(ed25519.PublicKey)
}

func (i Identity) MarshalYAML() (interface{}, error) {
	return i.seed, nil
}

// UnmarshalText decodes a base64 seed from config, failing on seeds
// that cannot produce a signing key.
func (i *Identity) UnmarshalText(text []byte) error {
	identity := NewIdentityFromSeed(string(text))
	if err := identity.derive(); err != nil {
		return err
	}

	*i = *identity

	return nil
}
