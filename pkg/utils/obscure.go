/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"

	"github.com/ai4os/ai4-papi/pkg/errors"
)

// rclone's fixed obscure key. Obscuring is reversible scrambling, not
// encryption; containers running rclone expect passwords in this form.
var obscureKey = []byte{
	0x9c, 0x93, 0x5b, 0x48, 0x73, 0x0a, 0x55, 0x4d,
	0x6b, 0xfd, 0x7c, 0x63, 0xc8, 0x86, 0xa9, 0x2b,
	0xd3, 0x90, 0x19, 0x8e, 0xb8, 0x12, 0x8a, 0xfb,
	0xf4, 0xde, 0x16, 0x2b, 0x8b, 0x95, 0xf6, 0x38,
}

// Obscure produces the rclone-compatible form of a storage password.
func Obscure(password string) (string, error) {
	plaintext := []byte(password)
	block, err := aes.NewCipher(obscureKey)
	if err != nil {
		return "", errors.NewInternalError(err.Error())
	}
	ciphertext := make([]byte, aes.BlockSize+len(plaintext))
	iv := ciphertext[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", errors.NewInternalError(err.Error())
	}
	stream := cipher.NewCTR(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], plaintext)
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// Reveal undoes Obscure.
func Reveal(obscured string) (string, error) {
	ciphertext, err := base64.RawURLEncoding.DecodeString(obscured)
	if err != nil {
		return "", errors.NewBadRequest("not an obscured password: " + err.Error())
	}
	if len(ciphertext) < aes.BlockSize {
		return "", errors.NewBadRequest("obscured password too short")
	}
	block, err := aes.NewCipher(obscureKey)
	if err != nil {
		return "", errors.NewInternalError(err.Error())
	}
	iv := ciphertext[:aes.BlockSize]
	buf := make([]byte, len(ciphertext)-aes.BlockSize)
	stream := cipher.NewCTR(block, iv)
	stream.XORKeyStream(buf, ciphertext[aes.BlockSize:])
	return string(buf), nil
}
