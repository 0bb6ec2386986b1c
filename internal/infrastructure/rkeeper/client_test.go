package rkeeper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rkbridge/backend/internal/domain/pos"
)

// commandServer answers each RK7 command with a canned document
func commandServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		for cmd, resp := range responses {
			if strings.Contains(string(body), `CMD="`+cmd+`"`) {
				w.Header().Set("Content-Type", "application/xml")
				_, _ = w.Write([]byte(resp))
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}))
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
	errs  []error
}

func (o *recordingObserver) ObservePOSCall(_ context.Context, command string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, command)
	o.errs = append(o.errs, err)
}

func TestClient_CreateOrder(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantGUID string
		wantErr  error
	}{
		{"returns guid", `<RK7QueryResult Status="Ok" guid="{GUID-1}"/>`, "{GUID-1}", nil},
		{"ok without guid is a failure", `<RK7QueryResult Status="Ok"/>`, "", pos.ErrMissingOrderGUID},
		{"nested order guid is a failure", `<RK7QueryResult Status="Ok"><Order guid="{NESTED}"/></RK7QueryResult>`, "", pos.ErrMissingOrderGUID},
		{"protocol error", `<RK7QueryResult Status="Query Executing Error" ErrorText="License check failed" RK7ErrorN="7"/>`, "", pos.ErrProtocolStatus},
		{"garbage", `not xml at all <`, "", pos.ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := commandServer(t, map[string]string{CmdCreateOrder: tt.response})
			defer server.Close()

			client, err := NewClient(newTestConfig(server.URL), zap.NewNop())
			require.NoError(t, err)

			guid, err := client.CreateOrder(context.Background(), pos.CreateOrderCommand{TableCode: 1, StationCode: 15002, Comment: "Web Order"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, guid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantGUID, guid)
		})
	}
}

func TestClient_CreateOrder_IgnoresCallerCancellation(t *testing.T) {
	server := commandServer(t, map[string]string{CmdCreateOrder: `<RK7QueryResult Status="Ok" guid="{G}"/>`})
	defer server.Close()

	client, err := NewClient(newTestConfig(server.URL), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	guid, err := client.CreateOrder(ctx, pos.CreateOrderCommand{TableCode: 1, StationCode: 1})
	require.NoError(t, err)
	assert.Equal(t, "{G}", guid)
}

func TestClient_SaveOrder(t *testing.T) {
	server := commandServer(t, map[string]string{
		CmdSaveOrder: `<RK7QueryResult Status="Query Executing Error" ErrorText="Instance not found" RK7ErrorN="5304"/>`,
	})
	defer server.Close()

	observer := &recordingObserver{}
	client, err := NewClient(newTestConfig(server.URL), nil, WithCallObserver(observer))
	require.NoError(t, err)

	result, err := client.SaveOrder(context.Background(), pos.SaveOrderCommand{
		OrderGUID:   "{G}",
		StationCode: 15002,
		Dishes:      []pos.DishLine{{RKeeperID: "1001", Quantity: 1}},
	})
	require.NoError(t, err, "protocol status is part of the result")
	assert.False(t, result.IsOK())
	assert.Equal(t, pos.LicenseErrInstanceNotFound, result.ErrorCode)

	require.Len(t, observer.calls, 1)
	assert.Equal(t, CmdSaveOrder, observer.calls[0])
	assert.NoError(t, observer.errs[0])
}

func TestClient_FetchStationMenu(t *testing.T) {
	t.Run("returns items", func(t *testing.T) {
		server := commandServer(t, map[string]string{
			CmdGetOrderMenu: `<RK7QueryResult Status="Ok"><Dishes><Item Ident="1001" Price="150000" Quantity="0"/></Dishes></RK7QueryResult>`,
		})
		defer server.Close()

		client, err := NewClient(newTestConfig(server.URL), nil)
		require.NoError(t, err)

		items, err := client.FetchStationMenu(context.Background(), 15002)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, int64(150000), items[0].PriceMinor)
	})

	t.Run("reports protocol status", func(t *testing.T) {
		server := commandServer(t, map[string]string{
			CmdGetOrderMenu: `<RK7QueryResult Status="Query Executing Error" ErrorText="Unknown station" RK7ErrorN="11"/>`,
		})
		defer server.Close()

		observer := &recordingObserver{}
		client, err := NewClient(newTestConfig(server.URL), nil, WithCallObserver(observer))
		require.NoError(t, err)

		_, err = client.FetchStationMenu(context.Background(), 1)
		var statusErr *pos.ProtocolStatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, "11", statusErr.Code)
		require.Len(t, observer.errs, 1)
		assert.Error(t, observer.errs[0])
	})
}

func TestClient_GetLicenseSeqNumber(t *testing.T) {
	server := commandServer(t, map[string]string{
		CmdGetLicenseSeqNum: `<RK7QueryResult Status="Ok"><LicenseInstance guid="G" seqNumber="42"/></RK7QueryResult>`,
	})
	defer server.Close()

	cfg := newTestConfig(server.URL)
	cfg.LicenseAnchor, cfg.LicenseToken, cfg.LicenseInstanceGUID = "A", "T", "G"
	client, err := NewClient(cfg, nil)
	require.NoError(t, err)

	seq, err := client.GetLicenseSeqNumber(context.Background(), cfg.License())
	require.NoError(t, err)
	assert.Equal(t, int64(42), seq)

	_, err = client.GetLicenseSeqNumber(context.Background(), pos.LicenseCredentials{})
	assert.ErrorIs(t, err, pos.ErrLicenseNotConfigured)
}

func TestClient_FetchDishReference(t *testing.T) {
	server := commandServer(t, map[string]string{CmdGetRefData: refDataResponse})
	defer server.Close()

	client, err := NewClient(newTestConfig(server.URL), nil)
	require.NoError(t, err)

	refs, err := client.FetchDishReference(context.Background())
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}
