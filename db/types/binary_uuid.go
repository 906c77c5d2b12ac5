package types

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// BinaryUUID stores a uuid as binary(16) instead of text, keeping indexes
// on uuid columns compact.
type BinaryUUID uuid.UUID

func (b BinaryUUID) String() string {
	return uuid.UUID(b).String()
}

func (b BinaryUUID) GormDataType() string {
	return "binary(16)"
}

func (b BinaryUUID) MarshalJSON() ([]byte, error) {
	s := uuid.UUID(b)
	str := "\"" + s.String() + "\""
	return []byte(str), nil
}

func (b *BinaryUUID) UnmarshalJSON(by []byte) error {
	s, err := uuid.ParseBytes(by)
	*b = BinaryUUID(s)
	return err
}

// Scan implements sql.Scanner.
func (b *BinaryUUID) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type for BinaryUUID: %T", value)
	}

	data, err := uuid.FromBytes(bytes)
	*b = BinaryUUID(data)
	return err
}

// Value implements driver.Valuer.
func (b BinaryUUID) Value() (driver.Value, error) {
	return uuid.UUID(b).MarshalBinary()
}
