// Package branches fetches remote-tracking branches of an existing clone without disturbing the
// checked-out ref.
//
// Synchronizer detaches HEAD, fetches each selected branch independently, and always restores the
// previous ref. ParseRemoteBranch splits `git branch -r` lines into remote and branch parts.
package branches
