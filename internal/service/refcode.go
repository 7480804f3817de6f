package service

import (
	"crypto/rand"
	"fmt"
)

// refCodeAlphabet исключает визуально похожие символы (0/O, 1/I/L),
// чтобы код можно было продиктовать и переписать без ошибок.
const refCodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const refCodeLength = 8

// newReferenceCode генерирует короткий код резервации из криптографически
// случайных байт: коды соседних покупателей не должны быть предсказуемыми.
func newReferenceCode() (string, error) {
	buf := make([]byte, refCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}

	code := make([]byte, refCodeLength)
	for i, b := range buf {
		code[i] = refCodeAlphabet[int(b)%len(refCodeAlphabet)]
	}

	return string(code), nil
}
