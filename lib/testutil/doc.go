// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// The Require* helpers wrap channel operations with timeout safety
// valves so that a broken test fails with a message instead of hanging
// the whole test binary.
package testutil
