package main

var (
	RunChat   = runChat
	NewLogger = newLogger
)

var Connect = connect

func NewBackend(url string, headers map[string]string, command string) backend {
	return backend{url: url, headers: headers, command: command}
}
