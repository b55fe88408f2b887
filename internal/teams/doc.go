// Package teams generates synthetic contest teams, persists them to a CSV
// roster for reuse across runs, and registers them with the contest platform.
package teams
