package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Параметры argon2id: m=64MiB, t=2, p=1, соль 16 байт, ключ 32 байта.
// Менять без миграции существующих дайджестов нельзя.
const (
	argonMemory  = 64 * 1024
	argonTime    = 2
	argonThreads = 1
	argonSaltLen = 16
	argonKeyLen  = 32
)

// hashPassword возвращает дайджест пароля в PHC-формате:
// $argon2id$v=19$m=65536,t=2,p=1$<salt_b64>$<hash_b64>.
// Соль генерируется заново на каждый вызов.
func hashPassword(password string) (string, error) {
	const op = "service.password.hashPassword"

	if password == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	digest := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	return digest, nil
}

// verifyPassword сверяет пароль с PHC-дайджестом за константное время.
// Любой некорректный/чужой формат дайджеста даёт false, не ошибку:
// вызывающая сторона не должна различать "не тот пароль" и "битый дайджест".
func verifyPassword(password, digest string) bool {
	parts := strings.Split(digest, "$")
	// ["", "argon2id", "v=19", "m=...,t=...,p=...", salt, hash]
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(want)))

	return subtle.ConstantTimeCompare(got, want) == 1
}
