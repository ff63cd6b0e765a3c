// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"forge.build/x/forge/pkg/forgeconfig"
)

var ErrLockfileOutOfSync = errors.New(forgeconfig.ForgeLockFileName + " needs to be updated; please run 'forge install'")

type Operation int

const (
	CheckOnly Operation = iota
	Regular
)

// Locker owns the project's forge-lock.yaml. In CheckOnly mode Save never
// touches disk, it only diffs the expected lockfile against the existing one.
type Locker struct {
	path string
	op   Operation
}

func NewLocker(projectDir string, op Operation) *Locker {
	return &Locker{
		path: filepath.Join(projectDir, forgeconfig.ForgeLockFileName),
		op:   op,
	}
}

// Load reads the existing lockfile, or returns an empty one when the project
// has none yet.
func (l *Locker) Load() (*Lock, error) {
	lock, err := Read(l.path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, err
	}
	return lock, nil
}

func (l *Locker) Save(expected *Lock) error {
	if l.op == CheckOnly {
		return l.check(expected)
	}
	return l.write(expected)
}

func (l *Locker) check(expected *Lock) error {
	existing, err := Read(l.path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %w", ErrLockfileOutOfSync, err)
	}
	if err != nil {
		return err
	}

	if existing.InSync(expected) {
		return nil
	}
	return ErrLockfileOutOfSync
}

// write commits the lockfile atomically: marshal to a temp sibling, then
// rename over the destination. A failed install can never leave a partially
// written lockfile behind.
func (l *Locker) write(lock *Lock) error {
	data, err := lock.Marshal()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), "."+forgeconfig.ForgeLockFileName+".tmp-")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, l.path)
}
