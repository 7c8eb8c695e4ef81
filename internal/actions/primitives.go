package actions

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"dsbench/internal/workspace"
)

// HelpDesk connects Request Help to a human on the other end of a stream.
type HelpDesk struct {
	In  io.Reader
	Out io.Writer

	once   sync.Once
	reader *bufio.Reader
}

// Ask prints the request and reads one line of reply.
func (h *HelpDesk) Ask(request string) (string, error) {
	if h == nil || h.In == nil {
		return "", workspace.NewError(workspace.ErrIO, "no human is available to answer the request", nil)
	}
	h.once.Do(func() { h.reader = bufio.NewReader(h.In) })

	if h.Out != nil {
		fmt.Fprintf(h.Out, "Research Assistant is requesting help: %s\n", request)
	}
	line, err := h.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", workspace.NewError(workspace.ErrIO, "no response to the help request", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Primitives binds every primitive Kind to ws and help.
func Primitives(ws *workspace.FS, help *HelpDesk) []Binding {
	return []Binding{
		Bind(ListFiles, []string{"dir_path"}, func(_ context.Context, _ Invoker, a Args) (Result, error) {
			return observe(ws.List(a.Get("dir_path")))
		}),
		Bind(ReadFile, []string{"file_name"}, func(_ context.Context, _ Invoker, a Args) (Result, error) {
			return observe(ws.Read(a.Get("file_name")))
		}),
		Bind(WriteFile, []string{"file_name", "content"}, func(_ context.Context, _ Invoker, a Args) (Result, error) {
			return observe(ws.Write(a.Get("file_name"), a.Get("content")))
		}),
		Bind(AppendFile, []string{"file_name", "content"}, func(_ context.Context, _ Invoker, a Args) (Result, error) {
			return observe(ws.Append(a.Get("file_name"), a.Get("content")))
		}),
		Bind(CopyFile, []string{"source", "destination"}, func(_ context.Context, _ Invoker, a Args) (Result, error) {
			return observe(ws.Copy(a.Get("source"), a.Get("destination")))
		}),
		Bind(UndoEditScript, []string{"script_name"}, func(_ context.Context, _ Invoker, a Args) (Result, error) {
			return observe(ws.Undo(a.Get("script_name")))
		}),
		Bind(ExecuteScript, []string{"script_name"}, func(ctx context.Context, _ Invoker, a Args) (Result, error) {
			return observe(ws.RunScript(ctx, a.Get("script_name")))
		}),
		Bind(RequestHelp, []string{"request"}, func(_ context.Context, _ Invoker, a Args) (Result, error) {
			return observe(help.Ask(a.Get("request")))
		}),
		Bind(FinalAnswer, []string{"final_answer"}, func(_ context.Context, _ Invoker, _ Args) (Result, error) {
			return Observe(""), nil
		}),
	}
}

func observe(obs string, err error) (Result, error) {
	if err != nil {
		return Result{}, err
	}
	return Observe(obs), nil
}
