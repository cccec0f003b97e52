// Command iris is the thin CLI shell over pkg/giris, following the
// cobra root-command layout tim-coutinho-agentops/cli/cmd/ao's root.go
// establishes: a package-level rootCmd, persistent flags set in init(),
// and an Execute() wrapper that turns a returned error into a process exit
// code rather than letting cobra print it twice.
package main

func main() {
	Execute()
}
