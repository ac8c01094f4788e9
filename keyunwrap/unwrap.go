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

// Package keyunwrap recovers the volume encryption key of an encryption
// domain from a user's password and wrapped key material.
//
// The key-encapsulation key (KEK) is sealed with XChaCha20-Poly1305 under a
// key derived from the password with Argon2id. The volume encryption key
// (VEK) is sealed with XChaCha20-Poly1305 under the KEK.
//
// Wrapped KEK layout:
//
//	"RUK1" | salt[16] | time[4] | memory KiB[4] | threads[1] | nonce[24] | sealed KEK
//
// Wrapped VEK layout:
//
//	"RUV1" | nonce[24] | sealed VEK
//
// Integers are big endian. The bytes preceding the nonce are authenticated
// as additional data.
package keyunwrap

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/xerrors"

	"github.com/snapcore/remote-unlock/secret"
)

const (
	kekMagic = "RUK1"
	vekMagic = "RUV1"

	saltSize = 16
	keySize  = chacha20poly1305.KeySize

	kekHeaderSize = len(kekMagic) + saltSize + 4 + 4 + 1

	maxTime      = 64
	maxMemoryKiB = 4 * 1024 * 1024
)

type kdfParams struct {
	salt      []byte
	time      uint32
	memoryKiB uint32
	threads   uint8
}

func invalidData(format string, args ...interface{}) error {
	return &Error{Status: StatusInvalidData, Err: xerrors.Errorf(format, args...)}
}

func parseWrappedKEK(wrapped []byte) (params kdfParams, header, nonce, sealed []byte, err error) {
	if len(wrapped) < kekHeaderSize+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return params, nil, nil, nil, invalidData("wrapped KEK too short (%d bytes)", len(wrapped))
	}
	if !bytes.HasPrefix(wrapped, []byte(kekMagic)) {
		return params, nil, nil, nil, invalidData("wrapped KEK has unknown format")
	}
	header = wrapped[:kekHeaderSize]
	p := header[len(kekMagic):]
	params.salt = p[:saltSize]
	p = p[saltSize:]
	params.time = binary.BigEndian.Uint32(p[0:4])
	params.memoryKiB = binary.BigEndian.Uint32(p[4:8])
	params.threads = p[8]
	if params.time == 0 || params.time > maxTime {
		return params, nil, nil, nil, invalidData("invalid KDF time cost %d", params.time)
	}
	if params.memoryKiB < 8*uint32(params.threads) || params.memoryKiB > maxMemoryKiB {
		return params, nil, nil, nil, invalidData("invalid KDF memory cost %d KiB", params.memoryKiB)
	}
	if params.threads == 0 {
		return params, nil, nil, nil, invalidData("invalid KDF parallelism 0")
	}
	rest := wrapped[kekHeaderSize:]
	nonce = rest[:chacha20poly1305.NonceSizeX]
	sealed = rest[chacha20poly1305.NonceSizeX:]
	return params, header, nonce, sealed, nil
}

func parseWrappedVEK(wrapped []byte) (header, nonce, sealed []byte, err error) {
	if len(wrapped) < len(vekMagic)+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, nil, nil, invalidData("wrapped VEK too short (%d bytes)", len(wrapped))
	}
	if !bytes.HasPrefix(wrapped, []byte(vekMagic)) {
		return nil, nil, nil, invalidData("wrapped VEK has unknown format")
	}
	header = wrapped[:len(vekMagic)]
	rest := wrapped[len(vekMagic):]
	return header, rest[:chacha20poly1305.NonceSizeX], rest[chacha20poly1305.NonceSizeX:], nil
}

// unwrapKEK derives the password key and opens the KEK. A failed
// authentication is reported as StatusBadPassword.
func unwrapKEK(password, wrapped []byte) (*secret.Buffer, error) {
	params, header, nonce, sealed, err := parseWrappedKEK(wrapped)
	if err != nil {
		return nil, err
	}
	pk := secret.FromBytes(argon2.IDKey(password, params.salt, params.time, params.memoryKiB, params.threads, keySize))
	defer pk.Wipe()

	return open(pk.Bytes(), nonce, sealed, header, StatusBadPassword)
}

// unwrapVEK opens the VEK with the KEK. Since the KEK is authenticated at
// this point, a failure means the pair does not belong together.
func unwrapVEK(kek *secret.Buffer, wrapped []byte) (*secret.Buffer, error) {
	header, nonce, sealed, err := parseWrappedVEK(wrapped)
	if err != nil {
		return nil, err
	}
	if kek.Len() != keySize {
		return nil, invalidData("unwrapped KEK has wrong size %d", kek.Len())
	}
	return open(kek.Bytes(), nonce, sealed, header, StatusInvalidData)
}

func open(key, nonce, sealed, ad []byte, authFailure Status) (*secret.Buffer, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, &Error{Status: StatusInternalError, Err: err}
	}
	out := secret.New(len(sealed) - aead.Overhead())
	if _, err := aead.Open(out.Bytes()[:0], nonce, sealed, ad); err != nil {
		out.Wipe()
		return nil, &Error{Status: authFailure}
	}
	return out, nil
}
