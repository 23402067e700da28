/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// errCancelled is returned when the user interrupts a prompt.
var errCancelled = fmt.Errorf("cancelled")

// prompter asks for one line of input at a time.
type prompter interface {
	Ask(prompt string) (string, error)
	Close() error
}

// linePrompter reads from a plain stream. Used when stdin is not a
// terminal.
type linePrompter struct {
	out     io.Writer
	scanner *bufio.Scanner
}

func newLinePrompter(in io.Reader, out io.Writer) *linePrompter {
	return &linePrompter{out: out, scanner: bufio.NewScanner(in)}
}

func (p *linePrompter) Ask(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(p.scanner.Text(), "\r"), nil
}

func (p *linePrompter) Close() error { return nil }

// readlinePrompter gives line editing on a terminal.
type readlinePrompter struct {
	rl *readline.Instance
}

func newReadlinePrompter() (*readlinePrompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		InterruptPrompt:     "^C",
		EOFPrompt:           "",
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return nil, err
	}
	return &readlinePrompter{rl: rl}, nil
}

func (p *readlinePrompter) Ask(prompt string) (string, error) {
	p.rl.SetPrompt(prompt)
	line, err := p.rl.Readline()
	if err == readline.ErrInterrupt {
		return "", errCancelled
	}
	return line, err
}

func (p *readlinePrompter) Close() error {
	return p.rl.Close()
}

// filterInput disables Ctrl+Z.
func filterInput(r rune) (rune, bool) {
	if r == readline.CharCtrlZ {
		return r, false
	}
	return r, true
}
