// Package sessiontoken генерирует непрозрачные токены сессии.
//
// Токен — 32 случайных байта в hex-представлении (256 бит энтропии),
// достаточно для требования "не менее 128 бит". Токен не несёт
// никакой информации: проверка выполняется только сравнением с
// сохранённым в базе значением.
package sessiontoken

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const tokenBytes = 32

// New возвращает новый криптографически случайный токен сессии.
func New() (string, error) {
	const op = "sessiontoken.New"
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return hex.EncodeToString(buf), nil
}
