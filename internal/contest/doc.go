// Package contest models the contest window and synchronizes the external
// contest authority into a running state before the simulation begins.
package contest
