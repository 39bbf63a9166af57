// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session ties a named transcript to an inference engine.
//
// A Session turns one line of user input into a prompt, generates the
// reply and records the turn. Plain chat sends the input as is; a session
// with a Retriever wraps retrieved document text around the question.
//
//	s := session.New("notes", recorder, inference.ChatOptions(), logger)
//	reply, err := s.Send(ctx, "hello")
//
// Blank input is rejected with ErrEmptyInput before any inference. A
// failed generation leaves the transcript untouched.
package session
