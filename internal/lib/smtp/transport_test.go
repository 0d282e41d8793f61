package smtp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect(ctx context.Context) (Client, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Client), args.Error(1)
}

func (m *MockTransport) Sender() string {
	return m.Called().String(0)
}

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Mail(from string) error { return m.Called(from).Error(0) }
func (m *MockClient) Rcpt(to string) error   { return m.Called(to).Error(0) }
func (m *MockClient) Quit() error            { return m.Called().Error(0) }
func (m *MockClient) Close() error           { return m.Called().Error(0) }

func (m *MockClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func TestCompose(t *testing.T) {
	msg := string(Compose("noreply@carpool.test", []string{"a@b.c"}, "Trip", "line1\nline2"))

	assert.True(t, strings.HasPrefix(msg, "From: noreply@carpool.test\r\nTo: a@b.c\r\n"))
	assert.Contains(t, msg, "Subject: Trip\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=\"UTF-8\"")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nline1\r\nline2"))
}

func TestCompose_EncodesNonASCIISubject(t *testing.T) {
	msg := string(Compose("f@x", []string{"t@x"}, "Поездка", "body"))
	assert.Contains(t, msg, "Subject: =?utf-8?q?")
}

func TestSend_Success(t *testing.T) {
	ctx := context.Background()
	tr := new(MockTransport)
	client := new(MockClient)
	w := &bufferCloser{}

	tr.On("Connect", ctx).Return(client, nil)
	tr.On("Sender").Return("noreply@carpool.test")
	client.On("Mail", "noreply@carpool.test").Return(nil)
	client.On("Rcpt", "a@b.c").Return(nil)
	client.On("Data").Return(w, nil)
	client.On("Quit").Return(nil)
	client.On("Close").Return(nil)

	err := Send(ctx, tr, []string{"a@b.c"}, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", w.String())
	assert.True(t, w.closed)
	tr.AssertExpectations(t)
	client.AssertExpectations(t)
}

func TestSend_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		setup   func(tr *MockTransport, c *MockClient)
		wantErr string
	}{
		{
			name: "connect fails",
			setup: func(tr *MockTransport, _ *MockClient) {
				tr.On("Connect", ctx).Return(nil, errors.New("dial refused"))
			},
			wantErr: "dial refused",
		},
		{
			name: "mail fails",
			setup: func(tr *MockTransport, c *MockClient) {
				tr.On("Connect", ctx).Return(c, nil)
				tr.On("Sender").Return("from@x")
				c.On("Mail", "from@x").Return(errors.New("rejected"))
				c.On("Close").Return(nil)
			},
			wantErr: "mail from",
		},
		{
			name: "rcpt fails",
			setup: func(tr *MockTransport, c *MockClient) {
				tr.On("Connect", ctx).Return(c, nil)
				tr.On("Sender").Return("from@x")
				c.On("Mail", "from@x").Return(nil)
				c.On("Rcpt", "a@b.c").Return(errors.New("no such user"))
				c.On("Close").Return(nil)
			},
			wantErr: "rcpt a@b.c",
		},
		{
			name: "data fails",
			setup: func(tr *MockTransport, c *MockClient) {
				tr.On("Connect", ctx).Return(c, nil)
				tr.On("Sender").Return("from@x")
				c.On("Mail", "from@x").Return(nil)
				c.On("Rcpt", "a@b.c").Return(nil)
				c.On("Data").Return(nil, errors.New("busy"))
				c.On("Close").Return(nil)
			},
			wantErr: "data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := new(MockTransport)
			c := new(MockClient)
			tt.setup(tr, c)

			err := Send(ctx, tr, []string{"a@b.c"}, []byte("x"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			tr.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}
}
