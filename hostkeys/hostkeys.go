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

// Package hostkeys manages the SSH host keys offered by sshd both on the
// installed system and in the initramfs.
//
// Host keys are generated in the system SSH directory. A copy is kept in the
// per-domain preboot directory, with the private half encrypted, so that the
// initramfs presents the same identity to clients.
package hostkeys

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/snapcore/remote-unlock/logger"
	"github.com/snapcore/remote-unlock/osutil"
	"github.com/snapcore/remote-unlock/secret"
)

// Algorithm is a host key type understood by ssh-keygen.
type Algorithm string

const (
	ECDSA   Algorithm = "ecdsa"
	ED25519 Algorithm = "ed25519"
	RSA     Algorithm = "rsa"
)

// Algorithms lists the host key types in the order sshd is offered them.
var Algorithms = []Algorithm{ECDSA, ED25519, RSA}

// PrivateKeyFilename is the file name of the private key.
func (a Algorithm) PrivateKeyFilename() string {
	return fmt.Sprintf("ssh_host_%s_key", string(a))
}

// PublicKeyFilename is the file name of the public key.
func (a Algorithm) PublicKeyFilename() string {
	return a.PrivateKeyFilename() + ".pub"
}

func (a Algorithm) encryptedFilename() string {
	return a.PrivateKeyFilename() + ".enc"
}

func (a Algorithm) refKeyFilename() string {
	return a.PrivateKeyFilename() + ".refkey"
}

// Manager generates host keys in KeysDir and maintains their copies in
// CopyDir. An empty CopyDir disables copying.
type Manager struct {
	// Keygen is the path of ssh-keygen.
	Keygen  string
	KeysDir string
	CopyDir string
}

// Generate creates the host key of the given type unless it already exists.
// It reports whether a key was generated.
func (m *Manager) Generate(alg Algorithm) (bool, error) {
	path := filepath.Join(m.KeysDir, alg.PrivateKeyFilename())
	if osutil.FileExists(path) {
		return false, nil
	}
	if err := os.MkdirAll(m.KeysDir, 0755); err != nil {
		return false, err
	}
	cmd := exec.Command(m.Keygen, "-q", "-t", string(alg), "-f", path, "-N", "", "-C", "")
	if output, err := cmd.CombinedOutput(); err != nil {
		return false, fmt.Errorf("cannot generate %s host key: %v", alg, osutil.OutputErr(output, err))
	}
	return true, nil
}

// Copy stores the public key and the encrypted private key of the given
// type in CopyDir. Plaintext private keys left there by older versions are
// removed. It reports whether anything was copied.
func (m *Manager) Copy(alg Algorithm) (bool, error) {
	if m.CopyDir == "" {
		return false, nil
	}
	srcPub := filepath.Join(m.KeysDir, alg.PublicKeyFilename())
	srcPriv := filepath.Join(m.KeysDir, alg.PrivateKeyFilename())
	dstPub := filepath.Join(m.CopyDir, alg.PublicKeyFilename())
	plainPriv := filepath.Join(m.CopyDir, alg.PrivateKeyFilename())

	pub, err := os.ReadFile(srcPub)
	if err != nil {
		return false, fmt.Errorf("cannot read %s host key: %v", alg, err)
	}
	// an identical public key is the only reliable sign of a previous copy
	if copied, err := os.ReadFile(dstPub); err == nil && bytes.Equal(pub, copied) && !osutil.FileExists(plainPriv) {
		return false, nil
	}

	if err := os.Remove(plainPriv); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("cannot remove plaintext %s host key copy: %v", alg, err)
	}
	if err := os.MkdirAll(m.CopyDir, 0755); err != nil {
		return false, err
	}

	privBytes, err := os.ReadFile(srcPriv)
	if err != nil {
		return false, fmt.Errorf("cannot read %s host key: %v", alg, err)
	}
	priv := secret.FromBytes(privBytes)
	defer priv.Wipe()

	envelope, refKey, err := seal(priv.Bytes(), alg.PrivateKeyFilename())
	if err != nil {
		return false, fmt.Errorf("cannot encrypt %s host key: %v", alg, err)
	}
	defer wipe(refKey)

	if err := osutil.AtomicWriteFile(dstPub, pub, 0644); err != nil {
		return false, err
	}
	if err := osutil.AtomicWriteFile(filepath.Join(m.CopyDir, alg.encryptedFilename()), envelope, 0600); err != nil {
		return false, err
	}
	if err := osutil.AtomicWriteFile(filepath.Join(m.CopyDir, alg.refKeyFilename()), refKey, 0600); err != nil {
		return false, err
	}
	return true, nil
}

// Restore makes the private key of the given type from CopyDir available in
// destDir and returns its path. A plaintext copy in CopyDir is used as is.
func (m *Manager) Restore(alg Algorithm, destDir string) (string, error) {
	plainPriv := filepath.Join(m.CopyDir, alg.PrivateKeyFilename())
	if osutil.FileExists(plainPriv) {
		logger.Debugf("using plaintext %s host key %s", alg, plainPriv)
		return plainPriv, nil
	}

	envelope, err := os.ReadFile(filepath.Join(m.CopyDir, alg.encryptedFilename()))
	if err != nil {
		return "", fmt.Errorf("cannot read encrypted %s host key: %v", alg, err)
	}
	refKey, err := os.ReadFile(filepath.Join(m.CopyDir, alg.refKeyFilename()))
	if err != nil {
		return "", fmt.Errorf("cannot read %s host key reference key: %v", alg, err)
	}
	defer wipe(refKey)

	plaintext, err := open(envelope, refKey, alg.PrivateKeyFilename())
	if err != nil {
		return "", err
	}
	priv := secret.FromBytes(plaintext)
	defer priv.Wipe()

	if err := os.MkdirAll(destDir, 0700); err != nil {
		return "", err
	}
	dst := filepath.Join(destDir, alg.PrivateKeyFilename())
	if err := osutil.AtomicWriteFile(dst, priv.Bytes(), 0600); err != nil {
		return "", err
	}
	return dst, nil
}
