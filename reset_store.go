package fitAuth

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const resetRecordVersionV1 = 1

var (
	errResetNotFound         = errors.New("reset record not found")
	errResetRedisUnavailable = errors.New("reset redis unavailable")
)

type passwordResetRecord struct {
	AccountID string
	ExpiresAt int64
}

// passwordResetStore keeps pending reset tokens keyed by the SHA-256 digest
// of the token, never the token itself.
type passwordResetStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func newPasswordResetStore(redisClient redis.UniversalClient, prefix string) *passwordResetStore {
	if prefix == "" {
		prefix = "fapr"
	}
	return &passwordResetStore{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *passwordResetStore) key(digest string) string {
	return s.prefix + ":" + digest
}

func (s *passwordResetStore) Save(ctx context.Context, digest string, record *passwordResetRecord, ttl time.Duration) error {
	encoded, err := encodePasswordResetRecord(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(digest), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errResetRedisUnavailable, err)
	}
	return nil
}

// Peek returns the record for digest without redeeming it.
func (s *passwordResetStore) Peek(ctx context.Context, digest string) (*passwordResetRecord, error) {
	return s.read(s.redis.Get(ctx, s.key(digest)))
}

// Consume atomically reads and deletes the record for digest, so a token
// can be redeemed at most once even under concurrent confirms.
func (s *passwordResetStore) Consume(ctx context.Context, digest string) (*passwordResetRecord, error) {
	return s.read(s.redis.GetDel(ctx, s.key(digest)))
}

func (s *passwordResetStore) read(cmd *redis.StringCmd) (*passwordResetRecord, error) {
	data, err := cmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errResetNotFound
		}
		return nil, fmt.Errorf("%w: %v", errResetRedisUnavailable, err)
	}

	record, err := decodePasswordResetRecord(data)
	if err != nil {
		return nil, errResetNotFound
	}
	if s.now().Unix() > record.ExpiresAt {
		return nil, errResetNotFound
	}
	return record, nil
}

func encodePasswordResetRecord(record *passwordResetRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(resetRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.AccountID) > 65535 {
		return nil, errors.New("reset record account id too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.AccountID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.AccountID)

	return buf.Bytes(), nil
}

func decodePasswordResetRecord(data []byte) (*passwordResetRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != resetRecordVersionV1 {
		return nil, errors.New("invalid reset record version")
	}

	record := &passwordResetRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var idLen uint16
	if err := binary.Read(reader, binary.BigEndian, &idLen); err != nil {
		return nil, err
	}
	id := make([]byte, idLen)
	if _, err := io.ReadFull(reader, id); err != nil {
		return nil, err
	}
	record.AccountID = string(id)

	return record, nil
}
