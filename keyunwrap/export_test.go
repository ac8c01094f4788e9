// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2025 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package keyunwrap

import (
	"crypto/rand"
	"encoding/binary"
	"os"
	"time"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

func MockTimeNow(f func() time.Time) (restore func()) {
	old := timeNow
	timeNow = f
	return func() {
		timeNow = old
	}
}

func MockAtomicWriteFile(f func(path string, data []byte, perm os.FileMode) error) (restore func()) {
	old := atomicWriteFile
	atomicWriteFile = f
	return func() {
		atomicWriteFile = old
	}
}

func MockKeyring(addKey func(keyType, description string, payload []byte, ringid int) (int, error), keyctlInt func(cmd, arg2, arg3, arg4, arg5 int) (int, error)) (restore func()) {
	oldAddKey, oldKeyctlInt := unixAddKey, unixKeyctlInt
	unixAddKey, unixKeyctlInt = addKey, keyctlInt
	return func() {
		unixAddKey, unixKeyctlInt = oldAddKey, oldKeyctlInt
	}
}

// WrapKEK seals kek with a password using cheap KDF parameters.
func WrapKEK(password, kek []byte) []byte {
	salt := make([]byte, saltSize)
	rand.Read(salt)
	header := append([]byte(kekMagic), salt...)
	header = binary.BigEndian.AppendUint32(header, 1)
	header = binary.BigEndian.AppendUint32(header, 64)
	header = append(header, 1)

	pk := argon2.IDKey(password, salt, 1, 64, 1, keySize)
	return seal(pk, header, kek)
}

// WrapVEK seals vek with kek.
func WrapVEK(kek, vek []byte) []byte {
	return seal(kek, []byte(vekMagic), vek)
}

func seal(key, header, plaintext []byte) []byte {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		panic(err)
	}
	nonce := make([]byte, aead.NonceSize())
	rand.Read(nonce)
	out := append(append([]byte{}, header...), nonce...)
	return aead.Seal(out, nonce, plaintext, header)
}
