// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with zap logging via ShellExecutor, exposes OSCommandRunner
// for default process execution, and defines the abstractions reposync uses to
// run git in a testable manner. Every invocation carries an explicit working
// directory; nothing relies on the process working directory.
package execshell
