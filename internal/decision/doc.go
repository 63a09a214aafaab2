// Package decision supplies the yes/no answers reconciliation needs for deletions, keeps, and clones,
// together with the policies that decide when those questions are asked at all.
package decision
