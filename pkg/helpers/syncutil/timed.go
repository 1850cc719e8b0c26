// Zaparoo WX Panel
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo WX Panel.
//
// Zaparoo WX Panel is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo WX Panel is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo WX Panel.  If not, see <http://www.gnu.org/licenses/>.

package syncutil

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// TimedMutex is a mutual exclusion lock whose acquisition can be bounded by
// a timeout. A caller that cannot get the lock in time gives up instead of
// queueing forever.
type TimedMutex struct {
	sem *semaphore.Weighted
}

func NewTimedMutex() *TimedMutex {
	return &TimedMutex{sem: semaphore.NewWeighted(1)}
}

// LockTimeout tries to acquire the lock for at most d and reports whether
// it succeeded. A non-positive d only succeeds if the lock is free.
func (m *TimedMutex) LockTimeout(d time.Duration) bool {
	if d <= 0 {
		return m.sem.TryAcquire(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return m.sem.Acquire(ctx, 1) == nil
}

// TryLock acquires the lock only if it is free right now.
func (m *TimedMutex) TryLock() bool {
	return m.sem.TryAcquire(1)
}

// Unlock releases the lock. Unlocking a mutex that is not held panics.
func (m *TimedMutex) Unlock() {
	m.sem.Release(1)
}
