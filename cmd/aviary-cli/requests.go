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
	stderrors "errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"aviary/internal/client"
	"aviary/internal/errors"
	"aviary/pkg/cli"
)

// errNothingToDo ends a request quietly without contacting the server.
var errNothingToDo = stderrors.New("nothing to do")

// inputError is a rejected answer to a prompt.
type inputError struct{ msg string }

func (e *inputError) Error() string { return e.msg }

func invalid(format string, args ...interface{}) error {
	return &inputError{msg: fmt.Sprintf(format, args...)}
}

func askName(p prompter, prompt string) (string, error) {
	name, err := p.Ask(prompt)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", invalid("Bird name can not be empty.")
	}
	return name, nil
}

func askMeasure(p prompter, prompt string) (float64, error) {
	s, err := p.Ask(prompt)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, invalid("Invalid number %q.", s)
	}
	return f, nil
}

func askDate(p prompter, prompt string) (string, error) {
	s, err := p.Ask(prompt)
	if err != nil {
		return "", err
	}
	if _, err := parseDate(s); err != nil {
		return "", invalid("Invalid date %q, expected DD/MM/YY HH:MM.", s)
	}
	return s, nil
}

func addBird(c *client.Client, p prompter) (string, error) {
	name, err := askName(p, "Enter bird name: ")
	if err != nil {
		return "", err
	}
	color, err := p.Ask("Enter bird color: ")
	if err != nil {
		return "", err
	}
	weight, err := askMeasure(p, "Enter bird weight: ")
	if err != nil {
		return "", err
	}
	height, err := askMeasure(p, "Enter bird height: ")
	if err != nil {
		return "", err
	}
	return c.AddBird(name, color, weight, height)
}

func addSighting(c *client.Client, p prompter) (string, error) {
	name, err := askName(p, "Enter bird name: ")
	if err != nil {
		return "", err
	}
	location, err := p.Ask("Enter sighting location: ")
	if err != nil {
		return "", err
	}
	date, err := askDate(p, "Enter sighting date (DD/MM/YY HH:MM): ")
	if err != nil {
		return "", err
	}
	ts, _ := parseDate(date)
	return c.AddSighting(name, location, &ts)
}

func listBirds(c *client.Client, out io.Writer) error {
	birds, err := c.ListBirds()
	if err != nil {
		return err
	}
	printBirds(out, birds)
	return nil
}

func listSightings(c *client.Client, p prompter, out io.Writer) error {
	pattern, err := askName(p, "Enter bird name (can be a regular expression): ")
	if err != nil {
		return err
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return invalid("Invalid regular expression for bird name.")
	}
	startText, err := askDate(p, "Enter exclusive start date (DD/MM/YY HH:MM): ")
	if err != nil {
		return err
	}
	endText, err := askDate(p, "Enter exclusive end date (DD/MM/YY HH:MM): ")
	if err != nil {
		return err
	}
	start, _ := parseDate(startText)
	end, _ := parseDate(endText)
	if start.After(end) {
		return invalid("Start date must not be after end date.")
	}

	sightings, err := c.ListSightings(pattern, start, end)
	if err != nil {
		return err
	}
	printSightings(out, sightings)
	return nil
}

func remove(c *client.Client, p prompter) (string, error) {
	name, err := p.Ask("Enter bird name to remove (or just press enter to quit): ")
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", errNothingToDo
	}
	return c.Remove(name)
}

// report prints a failed request and returns the exit code.
func report(out io.Writer, err error) int {
	var inErr *inputError
	var avErr *errors.AviaryError
	switch {
	case stderrors.Is(err, errNothingToDo):
		return 0
	case stderrors.Is(err, errCancelled), stderrors.Is(err, io.EOF):
		cli.PrintWarning("No input, nothing sent.")
		return 1
	case stderrors.As(err, &inErr):
		cli.PrintError("%s", inErr.msg)
		return 1
	case errors.IsIOFailure(err):
		cli.PrintError("Unable to reach the server: %v", err)
		return 1
	case stderrors.As(err, &avErr):
		// Duplicate, not found and rejected input come back as the
		// server's own message.
		fmt.Fprintln(out, avErr.Message)
		return 1
	default:
		cli.PrintError("%v", err)
		return 1
	}
}
