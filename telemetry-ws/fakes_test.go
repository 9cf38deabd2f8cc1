package telemetryws

import (
	"context"
	"sync"
	"time"

	"github.com/acmevideo/telemetry-fanout/telemetry-ws/connectiondao"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi/apigatewaymanagementapiiface"
)

// fakeStore is an in-memory ConnectionStore.
type fakeStore struct {
	mu      sync.Mutex
	conns   map[string]connectiondao.Connection
	putErr  error
	deletes []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{conns: map[string]connectiondao.Connection{}}
}

func (s *fakeStore) Put(_ context.Context, conn connectiondao.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.conns[conn.ConnectionID] = conn
	return nil
}

func (s *fakeStore) Delete(_ context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, connectionID)
	s.deletes = append(s.deletes, connectionID)
	return nil
}

func (s *fakeStore) DeleteAll(ctx context.Context, connectionIDs ...string) error {
	for _, id := range connectionIDs {
		if err := s.Delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStore) ListActive(_ context.Context) ([]connectiondao.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().Unix()
	var conns []connectiondao.Connection
	for _, conn := range s.conns {
		if conn.TTL > now {
			conns = append(conns, conn)
		}
	}
	return conns, nil
}

// fakeManagementAPI records PostToConnection calls and simulates gone or
// failing destinations.
type fakeManagementAPI struct {
	apigatewaymanagementapiiface.ApiGatewayManagementApiAPI

	mu      sync.Mutex
	posts   map[string][][]byte
	gone    map[string]bool
	failing map[string]bool
}

func newFakeManagementAPI() *fakeManagementAPI {
	return &fakeManagementAPI{
		posts:   map[string][][]byte{},
		gone:    map[string]bool{},
		failing: map[string]bool{},
	}
}

func (f *fakeManagementAPI) PostToConnectionWithContext(_ aws.Context, input *apigatewaymanagementapi.PostToConnectionInput, _ ...request.Option) (*apigatewaymanagementapi.PostToConnectionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := aws.StringValue(input.ConnectionId)
	if f.gone[id] {
		return nil, awserr.New(apigatewaymanagementapi.ErrCodeGoneException, "connection no longer exists", nil)
	}
	if f.failing[id] {
		return nil, awserr.New("LimitExceededException", "throttled", nil)
	}
	f.posts[id] = append(f.posts[id], input.Data)
	return &apigatewaymanagementapi.PostToConnectionOutput{}, nil
}

func (f *fakeManagementAPI) received(connectionID string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts[connectionID]
}
