package connector

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dirsync/james-connector/internal/domain/directory"
	"github.com/dirsync/james-connector/internal/infrastructure/james"
	"github.com/dirsync/james-connector/internal/testutil/jamesfake"
)

func newAliasService(t *testing.T, gw directory.AliasGateway, opts ...Option) *AliasService {
	t.Helper()
	svc, err := NewAliasService(gw, TaskConfig{Name: "aliases"}, append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
	require.NoError(t, err)
	return svc
}

func newFakeAliasService(t *testing.T, fake *jamesfake.Server, task TaskConfig) *AliasService {
	t.Helper()
	client, err := james.NewClient(james.NewConfig(fake.URL, jamesfake.Username, jamesfake.Password))
	require.NoError(t, err)
	svc, err := NewAliasService(james.NewAliasGateway(client), task, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return svc
}

func TestNewAliasService(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		svc := newAliasService(t, &MockAliasGateway{})
		assert.Equal(t, ServiceAlias, svc.Task().Service)
		assert.Equal(t, UpdateSkip, svc.Task().UpdateMode)
		assert.Equal(t, []string{directory.AttrSources}, svc.GetWriteDatasetIDs())
	})

	t.Run("unknown bean", func(t *testing.T) {
		_, err := NewAliasService(&MockAliasGateway{}, TaskConfig{Bean: "com.example.MissingBean"})
		assert.ErrorIs(t, err, directory.ErrConfiguration)
		assert.ErrorIs(t, err, directory.ErrUnknownBean)
	})

	t.Run("legacy bean name", func(t *testing.T) {
		_, err := NewAliasService(&MockAliasGateway{}, TaskConfig{Bean: "org.lsc.beans.SimpleBean"})
		assert.NoError(t, err)
	})
}

func TestAliasService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("single alias accepted", func(t *testing.T) {
		gw := &MockAliasGateway{}
		gw.On("CreateAlias", mock.Anything, "user@example.org", directory.Alias{Source: "alias@example.org"}).
			Return(directory.Success(), nil).Once()
		svc := newAliasService(t, gw)

		assert.True(t, svc.Apply(ctx, create("user@example.org", "alias@example.org")))
		gw.AssertExpectations(t)
	})

	t.Run("single alias refused", func(t *testing.T) {
		gw := &MockAliasGateway{}
		gw.On("CreateAlias", mock.Anything, "user@example.org", mock.Anything).
			Return(directory.Failure("Error 400 (Bad Request - nope) while creating alias: x"), nil)
		svc := newAliasService(t, gw)

		outcome := svc.ApplyChange(ctx, create("user@example.org", "alias@example.org"))
		assert.False(t, outcome.Succeeded)
		assert.Contains(t, outcome.Diagnostic, "Error 400")
	})

	t.Run("every alias is attempted after a failure", func(t *testing.T) {
		gw := &MockAliasGateway{}
		gw.On("CreateAlias", mock.Anything, "user@example.org", directory.Alias{Source: "a1@example.org"}).
			Return(directory.Failure("a1 refused"), nil).Once()
		gw.On("CreateAlias", mock.Anything, "user@example.org", directory.Alias{Source: "a2@example.org"}).
			Return(directory.Success(), nil).Once()
		gw.On("CreateAlias", mock.Anything, "user@example.org", directory.Alias{Source: "a3@example.org"}).
			Return(directory.Failure("a3 refused"), nil).Once()
		svc := newAliasService(t, gw)

		outcome := svc.ApplyChange(ctx, create("user@example.org", "a1@example.org", "a2@example.org", "a3@example.org"))
		assert.False(t, outcome.Succeeded)
		assert.Equal(t, "a1 refused; a3 refused", outcome.Diagnostic)
		gw.AssertNumberOfCalls(t, "CreateAlias", 3)
	})

	t.Run("unreachable destination becomes false", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		gw := &MockAliasGateway{}
		commErr := &directory.CommunicationError{Method: http.MethodPut, URL: "http://james", Err: errors.New("connection refused")}
		gw.On("CreateAlias", mock.Anything, mock.Anything, mock.Anything).Return(directory.Failure("x"), commErr).Twice()
		svc := newAliasService(t, gw, WithLogger(zap.New(core)))

		assert.False(t, svc.Apply(ctx, create("user@example.org", "a1@example.org", "a2@example.org")))
		gw.AssertNumberOfCalls(t, "CreateAlias", 2)
		assert.Equal(t, 2, logs.FilterMessage("Destination unreachable while creating alias").Len())
	})

	t.Run("no sources is a success", func(t *testing.T) {
		gw := &MockAliasGateway{}
		svc := newAliasService(t, gw)

		assert.True(t, svc.Apply(ctx, create("user@example.org")))
		gw.AssertNotCalled(t, "CreateAlias", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("custom alias attribute", func(t *testing.T) {
		gw := &MockAliasGateway{}
		gw.On("CreateAlias", mock.Anything, "user@example.org", directory.Alias{Source: "m@example.org"}).
			Return(directory.Success(), nil).Once()
		svc, err := NewAliasService(gw, TaskConfig{AliasAttribute: "mailAlternateAddress"})
		require.NoError(t, err)

		change := directory.ChangeDescriptor{
			Operation:      directory.OperationCreate,
			MainIdentifier: "user@example.org",
			Attributes: directory.Datasets{
				"mailAlternateAddress":  {"m@example.org"},
				directory.AttrSources: {"ignored@example.org"},
			},
		}
		assert.True(t, svc.Apply(ctx, change))
		gw.AssertExpectations(t)
	})
}

func TestAliasService_MissingMainIdentifier(t *testing.T) {
	ctx := context.Background()
	ops := []directory.OperationKind{
		directory.OperationCreate,
		directory.OperationUpdate,
		directory.OperationDelete,
		directory.OperationChangeID,
		directory.OperationNoop,
	}

	for _, op := range ops {
		t.Run(op.String(), func(t *testing.T) {
			fake := jamesfake.New(t)
			core, logs := observer.New(zapcore.ErrorLevel)
			svc := newFakeAliasService(t, fake, TaskConfig{})
			svc.logger = zap.New(core)

			change := directory.ChangeDescriptor{
				Operation:  op,
				Attributes: directory.Datasets{directory.AttrSources: {"alias@example.org"}},
			}
			outcome := svc.ApplyChange(ctx, change)

			assert.False(t, outcome.Succeeded)
			assert.Contains(t, outcome.Diagnostic, "main identifier")
			assert.Zero(t, fake.RequestCount())
			assert.Equal(t, 1, logs.FilterMessage("MainIdentifier is needed to update").Len())
		})
	}
}

func TestAliasService_Update(t *testing.T) {
	ctx := context.Background()
	update := func(sources ...string) directory.ChangeDescriptor {
		return directory.ChangeDescriptor{
			Operation:      directory.OperationUpdate,
			MainIdentifier: "user@example.org",
			Attributes:     directory.Datasets{directory.AttrSources: sources},
		}
	}

	t.Run("skip mode makes no call", func(t *testing.T) {
		fake := jamesfake.New(t)
		svc := newFakeAliasService(t, fake, TaskConfig{})

		assert.True(t, svc.Apply(ctx, update("alias@example.org")))
		assert.Zero(t, fake.RequestCount())
	})

	t.Run("patch mode adds and removes sources", func(t *testing.T) {
		fake := jamesfake.New(t)
		fake.AddAlias("user@example.org", "keep@example.org")
		fake.AddAlias("user@example.org", "drop@example.org")
		svc := newFakeAliasService(t, fake, TaskConfig{UpdateMode: UpdatePatch})

		assert.True(t, svc.Apply(ctx, update("keep@example.org", "new@example.org")))
		assert.ElementsMatch(t, []string{"keep@example.org", "new@example.org"}, fake.Aliases("user@example.org"))
	})

	t.Run("patch mode on unknown identity creates everything", func(t *testing.T) {
		fake := jamesfake.New(t)
		svc := newFakeAliasService(t, fake, TaskConfig{UpdateMode: UpdatePatch})

		assert.True(t, svc.Apply(ctx, update("a@example.org", "a@example.org")))
		assert.Equal(t, []string{"a@example.org"}, fake.Aliases("user@example.org"))
	})

	t.Run("patch mode without the attribute leaves aliases alone", func(t *testing.T) {
		fake := jamesfake.New(t)
		fake.AddAlias("user@example.org", "keep@example.org")
		svc := newFakeAliasService(t, fake, TaskConfig{UpdateMode: UpdatePatch})

		change := directory.ChangeDescriptor{Operation: directory.OperationUpdate, MainIdentifier: "user@example.org"}
		assert.True(t, svc.Apply(ctx, change))
		assert.Zero(t, fake.RequestCount())
	})

	t.Run("patch mode keeps going after a refused removal", func(t *testing.T) {
		gw := &MockAliasGateway{}
		gw.On("ListAliases", mock.Anything, "user@example.org").
			Return([]directory.Alias{{Source: "old1@example.org"}, {Source: "old2@example.org"}}, nil)
		gw.On("CreateAlias", mock.Anything, "user@example.org", directory.Alias{Source: "new@example.org"}).
			Return(directory.Success(), nil)
		gw.On("RemoveAlias", mock.Anything, "user@example.org", directory.Alias{Source: "old1@example.org"}).
			Return(directory.Failure("old1 refused"), nil)
		gw.On("RemoveAlias", mock.Anything, "user@example.org", directory.Alias{Source: "old2@example.org"}).
			Return(directory.Success(), nil)
		svc, err := NewAliasService(gw, TaskConfig{UpdateMode: UpdatePatch})
		require.NoError(t, err)

		outcome := svc.ApplyChange(ctx, update("new@example.org"))
		assert.False(t, outcome.Succeeded)
		assert.Equal(t, "old1 refused", outcome.Diagnostic)
		gw.AssertNumberOfCalls(t, "RemoveAlias", 2)
	})

	t.Run("patch mode fails when current aliases cannot be read", func(t *testing.T) {
		gw := &MockAliasGateway{}
		gw.On("ListAliases", mock.Anything, "user@example.org").
			Return(nil, &directory.ServiceError{StatusCode: 500, StatusText: "Internal Server Error"})
		svc, err := NewAliasService(gw, TaskConfig{UpdateMode: UpdatePatch})
		require.NoError(t, err)

		assert.False(t, svc.Apply(ctx, update("new@example.org")))
		gw.AssertNotCalled(t, "CreateAlias", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAliasService_Delete(t *testing.T) {
	ctx := context.Background()
	del := directory.ChangeDescriptor{Operation: directory.OperationDelete, MainIdentifier: "user@example.org"}

	t.Run("identity without aliases issues exactly one DELETE", func(t *testing.T) {
		fake := jamesfake.New(t)
		svc := newFakeAliasService(t, fake, TaskConfig{})

		assert.True(t, svc.Apply(ctx, del))
		require.Equal(t, 1, fake.RequestCount())
		req := fake.Requests()[0]
		assert.Equal(t, http.MethodDelete, req.Method)
		assert.Equal(t, "/address/aliases/user@example.org", req.Path)
	})

	t.Run("result reflects the response status", func(t *testing.T) {
		fake := jamesfake.New(t)
		fake.Fail(http.MethodDelete, "/address/aliases/user@example.org", http.StatusInternalServerError, "boom")
		svc := newFakeAliasService(t, fake, TaskConfig{})

		assert.False(t, svc.Apply(ctx, del))
		assert.Equal(t, 1, fake.RequestCount())
	})

	t.Run("removes every alias", func(t *testing.T) {
		fake := jamesfake.New(t)
		fake.AddAlias("user@example.org", "a@example.org")
		svc := newFakeAliasService(t, fake, TaskConfig{})

		assert.True(t, svc.Apply(ctx, del))
		assert.Empty(t, fake.Aliases("user@example.org"))
	})
}

func TestAliasService_VacuousOperations(t *testing.T) {
	fake := jamesfake.New(t)
	metrics := &recordingMetrics{}
	svc := newFakeAliasService(t, fake, TaskConfig{})
	svc.metrics = metrics

	for _, op := range []directory.OperationKind{directory.OperationChangeID, directory.OperationNoop} {
		change := directory.ChangeDescriptor{Operation: op, MainIdentifier: "user@example.org"}
		assert.True(t, svc.Apply(context.Background(), change), op.String())
	}
	assert.Zero(t, fake.RequestCount())
	assert.Equal(t, []changeMetric{
		{"aliases", "change_id", true},
		{"aliases", "noop", true},
	}, metrics.changes)
}

func TestAliasService_GetListPivots(t *testing.T) {
	ctx := context.Background()

	t.Run("empty destination", func(t *testing.T) {
		fake := jamesfake.New(t)
		svc := newFakeAliasService(t, fake, TaskConfig{})

		pivots, err := svc.GetListPivots(ctx)
		require.NoError(t, err)
		assert.NotNil(t, pivots)
		assert.Empty(t, pivots)
	})

	t.Run("single identity with one alias", func(t *testing.T) {
		fake := jamesfake.New(t)
		fake.AddAlias("user@example.org", "alias@example.org")
		svc := newFakeAliasService(t, fake, TaskConfig{})

		pivots, err := svc.GetListPivots(ctx)
		require.NoError(t, err)
		assert.Equal(t, directory.PivotMap{
			"user@example.org": {
				"email":   {"user@example.org"},
				"sources": {"alias@example.org"},
			},
		}, pivots)
	})

	t.Run("two identities do not share aliases", func(t *testing.T) {
		fake := jamesfake.New(t)
		fake.AddAlias("user1@example.org", "alias1@example.org")
		fake.AddAlias("user2@example.org", "alias2@example.org")
		fake.AddAlias("user2@example.org", "alias3@example.org")
		svc := newFakeAliasService(t, fake, TaskConfig{})

		pivots, err := svc.GetListPivots(ctx)
		require.NoError(t, err)
		require.Len(t, pivots, 2)
		assert.Equal(t, []string{"alias1@example.org"}, pivots["user1@example.org"].Values("sources"))
		assert.Equal(t, []string{"alias2@example.org", "alias3@example.org"}, pivots["user2@example.org"].Values("sources"))
	})

	t.Run("identity listed without aliases gets an empty list", func(t *testing.T) {
		gw := &MockAliasGateway{}
		gw.On("ListIdentities", mock.Anything).Return([]directory.Identity{{Email: "ghost@example.org"}}, nil)
		gw.On("ListAliases", mock.Anything, "ghost@example.org").Return(nil, directory.ErrNotFound)
		svc := newAliasService(t, gw)

		pivots, err := svc.GetListPivots(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{}, pivots["ghost@example.org"]["sources"])
	})

	t.Run("unreachable destination aborts enumeration", func(t *testing.T) {
		gw := &MockAliasGateway{}
		gw.On("ListIdentities", mock.Anything).
			Return(nil, &directory.CommunicationError{Method: "GET", URL: "http://james", Err: errors.New("timeout")})
		svc := newAliasService(t, gw)

		pivots, err := svc.GetListPivots(ctx)
		assert.Nil(t, pivots)
		assert.ErrorIs(t, err, directory.ErrServiceCommunication)
	})

	t.Run("failure on a child listing aborts enumeration", func(t *testing.T) {
		fake := jamesfake.New(t)
		fake.AddAlias("user@example.org", "alias@example.org")
		fake.Fail(http.MethodGet, "/address/aliases/user@example.org", http.StatusInternalServerError, "boom")
		svc := newFakeAliasService(t, fake, TaskConfig{})

		_, err := svc.GetListPivots(ctx)
		assert.ErrorIs(t, err, directory.ErrService)
		var se *directory.ServiceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	})

	t.Run("records pivot count", func(t *testing.T) {
		fake := jamesfake.New(t)
		fake.AddAlias("user@example.org", "alias@example.org")
		metrics := &recordingMetrics{}
		svc := newFakeAliasService(t, fake, TaskConfig{})
		svc.metrics = metrics

		_, err := svc.GetListPivots(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{1}, metrics.pivots)
	})
}

func TestAliasService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := jamesfake.New(t)
	svc := newFakeAliasService(t, fake, TaskConfig{})

	require.True(t, svc.Apply(ctx, create("user@example.org", "alias@example.org")))

	pivots, err := svc.GetListPivots(ctx)
	require.NoError(t, err)
	assert.Contains(t, pivots["user@example.org"].Values("sources"), "alias@example.org")
}

func TestAliasService_GetBean(t *testing.T) {
	ctx := context.Background()
	fake := jamesfake.New(t)
	fake.AddAlias("user@example.org", "alias@example.org")
	svc := newFakeAliasService(t, fake, TaskConfig{})

	t.Run("same service uses email", func(t *testing.T) {
		bean, err := svc.GetBean(ctx, "uid", directory.Datasets{"email": {"user@example.org"}}, true)
		require.NoError(t, err)
		require.NotNil(t, bean)
		assert.Equal(t, "user@example.org", bean.MainIdentifier())
		assert.Equal(t, []string{"alias@example.org"}, bean.Datasets().Values("sources"))
	})

	t.Run("foreign datasets use the id attribute", func(t *testing.T) {
		bean, err := svc.GetBean(ctx, "mail", directory.Datasets{"mail": {"user@example.org"}}, false)
		require.NoError(t, err)
		require.NotNil(t, bean)
		assert.Equal(t, "user@example.org", bean.MainIdentifier())
	})

	t.Run("unknown identity", func(t *testing.T) {
		bean, err := svc.GetBean(ctx, "email", directory.Datasets{"email": {"nobody@example.org"}}, true)
		assert.NoError(t, err)
		assert.Nil(t, bean)
	})

	t.Run("missing key", func(t *testing.T) {
		bean, err := svc.GetBean(ctx, "mail", directory.Datasets{}, false)
		assert.NoError(t, err)
		assert.Nil(t, bean)
	})

	t.Run("custom bean type", func(t *testing.T) {
		type taggedBean struct{ directory.Bean }
		beans := directory.NewBeanRegistry()
		require.NoError(t, beans.Register("TaggedBean", func(id string, ds directory.Datasets) directory.Bean {
			return taggedBean{directory.NewSimpleBean(id, ds)}
		}))
		client, err := james.NewClient(james.NewConfig(fake.URL, jamesfake.Username, jamesfake.Password))
		require.NoError(t, err)
		custom, err := NewAliasService(james.NewAliasGateway(client), TaskConfig{Bean: "TaggedBean"}, WithBeanRegistry(beans))
		require.NoError(t, err)

		bean, err := custom.GetBean(ctx, "email", directory.Datasets{"email": {"user@example.org"}}, true)
		require.NoError(t, err)
		assert.IsType(t, taggedBean{}, bean)
	})
}

func TestAliasService_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	gw := &MockAliasGateway{}
	gw.On("CreateAlias", mock.Anything, mock.Anything, mock.Anything).Return(directory.Failure("refused"), nil)
	svc := newAliasService(t, gw)

	svc.Apply(context.Background(), create("user@example.org", "alias@example.org"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "aliases.apply", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "refused", spans[0].Status().Description)
}
