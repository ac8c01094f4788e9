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

package hostkeys

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// An encrypted host key is
//
//	"RHK1" | nonce (24 bytes) | XChaCha20-Poly1305 ciphertext
//
// sealed with a key derived by HKDF-SHA256 from a random reference key and
// bound to the key file name. The header is the additional data.

const refKeySize = 32

var envelopeMagic = []byte("RHK1")

var randRead = rand.Read

var errShortEnvelope = errors.New("encrypted host key is too short")

func envelopeKey(refKey []byte, name string) ([]byte, error) {
	if len(refKey) != refKeySize {
		return nil, fmt.Errorf("invalid reference key length %d", len(refKey))
	}
	key := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, refKey, nil, []byte("remote-unlock host key "+name))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// seal encrypts the private key with a fresh reference key.
func seal(plaintext []byte, name string) (envelope, refKey []byte, err error) {
	refKey = make([]byte, refKeySize)
	if _, err := randRead(refKey); err != nil {
		return nil, nil, fmt.Errorf("cannot generate reference key: %v", err)
	}
	key, err := envelopeKey(refKey, name)
	if err != nil {
		return nil, nil, err
	}
	defer wipe(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := randRead(nonce); err != nil {
		return nil, nil, fmt.Errorf("cannot generate nonce: %v", err)
	}
	envelope = make([]byte, 0, len(envelopeMagic)+len(nonce)+len(plaintext)+aead.Overhead())
	envelope = append(envelope, envelopeMagic...)
	envelope = append(envelope, nonce...)
	envelope = aead.Seal(envelope, nonce, plaintext, envelopeMagic)
	return envelope, refKey, nil
}

// open decrypts an envelope produced by seal.
func open(envelope, refKey []byte, name string) ([]byte, error) {
	if !bytes.HasPrefix(envelope, envelopeMagic) {
		return nil, errors.New("encrypted host key has an unknown format")
	}
	body := envelope[len(envelopeMagic):]
	if len(body) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, errShortEnvelope
	}
	key, err := envelopeKey(refKey, name)
	if err != nil {
		return nil, err
	}
	defer wipe(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce, sealed := body[:aead.NonceSize()], body[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, envelopeMagic)
	if err != nil {
		return nil, errors.New("cannot decrypt host key: authentication failed")
	}
	return plaintext, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
