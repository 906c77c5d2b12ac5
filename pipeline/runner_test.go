package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
)

func testRunner() *Runner {
	return NewRunner(core.NewLogger(nil).Named("test"))
}

func TestRunnerStreamsStdoutLines(t *testing.T) {
	var lines []string

	output, err := testRunner().Run(context.Background(), Command{
		Bin:  "sh",
		Args: []string{"-c", "echo one; echo two"},
		LineFunc: func(line string) {
			lines = append(lines, line)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)
	assert.Contains(t, output, "one")
}

func TestRunnerInterleavedStreams(t *testing.T) {
	var count int

	output, err := testRunner().Run(context.Background(), Command{
		Bin:  "sh",
		Args: []string{"-c", "i=0; while [ $i -lt 500 ]; do echo out$i; echo err$i 1>&2; i=$((i+1)); done"},
		LineFunc: func(string) {
			count++
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 500, count)
	assert.Contains(t, output, "err499")
}

func TestRunnerCommandFailure(t *testing.T) {
	output, err := testRunner().Run(context.Background(), Command{
		Bin:  "sh",
		Args: []string{"-c", "echo boom 1>&2; exit 3"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, output, "boom")
}

func TestRunnerTimeout(t *testing.T) {
	start := time.Now()
	_, err := testRunner().Run(context.Background(), Command{
		Bin:     "sh",
		Args:    []string{"-c", "sleep 30"},
		Timeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 15*time.Second)
}

func TestRunnerOverlongLine(t *testing.T) {
	_, err := testRunner().Run(context.Background(), Command{
		Bin:  "sh",
		Args: []string{"-c", `head -c 2000000 /dev/zero | tr "\0" x; echo`},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, bufio.ErrTooLong)
}

func TestTailBufferConcurrentWrites(t *testing.T) {
	var buf tailBuffer
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				_, _ = buf.Write([]byte("0123456789abcdef"))
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, len(buf.String()), maxCapturedOutput)
}

func TestTailBufferKeepsTail(t *testing.T) {
	var buf tailBuffer

	_, err := buf.Write(bytes.Repeat([]byte("a"), maxCapturedOutput))
	require.NoError(t, err)
	_, err = buf.Write([]byte("zzz"))
	require.NoError(t, err)

	out := buf.String()
	assert.Len(t, out, maxCapturedOutput)
	assert.True(t, strings.HasSuffix(out, "zzz"))
}

func TestLastLines(t *testing.T) {
	s := "a\nb\nc\nd\ne\nf\ng"
	assert.Equal(t, "c\nd\ne\nf\ng", lastLines(s, 5))
	assert.Equal(t, "a\nb\nc\nd\ne\nf\ng", lastLines(s, 10))
	assert.Equal(t, "x", lastLines("x\n", 1))
}
