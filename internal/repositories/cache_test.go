package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	. "surveys/internal/models"
	"surveys/internal/services"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go/mock"
	"go.uber.org/mock/gomock"
)

type cachedRepo struct {
	repo   SurveyTemplateRepository
	client *mock.Client
	tx     *services.TransactionService
}

// newCachedRepo backs the repository with SQLite and a mocked template cache.
// The controller is created first so its checks run after the database closes.
func newCachedRepo(t *testing.T) cachedRepo {
	t.Helper()

	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	client.EXPECT().Close().AnyTimes()

	db := newTestDB(t)
	db.Cache.Template = client

	return cachedRepo{
		repo:   NewSurveyTemplateRepository(db, time.Minute),
		client: client,
		tx:     services.NewTransactionService(db),
	}
}

func templateKey(id string) string {
	return fmt.Sprintf(services.TemplateCachePattern, id)
}

func TestSurveyTemplateRepository_CacheMissStoresTemplate(t *testing.T) {
	ctx := context.Background()
	c := newCachedRepo(t)

	template := testTemplate("Rooftop Unit")
	require.NoError(t, c.repo.Create(ctx, template))
	key := templateKey(template.ID)

	gomock.InOrder(
		c.client.EXPECT().
			Do(gomock.Any(), mock.Match("GET", key)).
			Return(mock.Result(mock.ValkeyNil())),
		c.client.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				if len(cmd) != 5 || cmd[0] != "SET" || cmd[1] != key || cmd[3] != "EX" || cmd[4] != "60" {
					return false
				}
				var cached SurveyTemplate
				return json.Unmarshal([]byte(cmd[2]), &cached) == nil &&
					cached.Name == "Rooftop Unit" &&
					cached.Base().Has("manufacturer")
			}, "SET template with ttl")).
			Return(mock.Result(mock.ValkeyString("OK"))),
	)

	got, err := c.repo.GetByID(ctx, template.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rooftop Unit", got.Name)
}

func TestSurveyTemplateRepository_CacheHitSkipsDatabase(t *testing.T) {
	ctx := context.Background()
	c := newCachedRepo(t)

	template := testTemplate("Rooftop Unit")
	require.NoError(t, c.repo.Create(ctx, template))

	cached := *template
	cached.Name = "From Cache"
	payload, err := json.Marshal(&cached)
	require.NoError(t, err)

	c.client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", templateKey(template.ID))).
		Return(mock.Result(mock.ValkeyString(string(payload))))

	got, err := c.repo.GetByID(ctx, template.ID)
	require.NoError(t, err)
	assert.Equal(t, "From Cache", got.Name)
	assert.Equal(t, []string{"manufacturer", "nameplate"}, got.Base().Keys())
}

func TestSurveyTemplateRepository_CacheErrorsFallBackToDatabase(t *testing.T) {
	ctx := context.Background()
	c := newCachedRepo(t)

	template := testTemplate("Rooftop Unit")
	require.NoError(t, c.repo.Create(ctx, template))
	key := templateKey(template.ID)

	gomock.InOrder(
		c.client.EXPECT().
			Do(gomock.Any(), mock.Match("GET", key)).
			Return(mock.ErrorResult(errors.New("connection refused"))),
		c.client.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "SET" && cmd[1] == key })).
			Return(mock.ErrorResult(errors.New("connection refused"))),
	)

	got, err := c.repo.GetByID(ctx, template.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rooftop Unit", got.Name)
}

func TestSurveyTemplateRepository_TransactionBypassesCache(t *testing.T) {
	ctx := context.Background()
	c := newCachedRepo(t)

	err := c.tx.Execute(ctx, func(txCtx context.Context) error {
		template := testTemplate("Inside Tx")
		if err := c.repo.Create(txCtx, template); err != nil {
			return err
		}
		got, err := c.repo.GetByID(txCtx, template.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, "Inside Tx", got.Name)
		return nil
	})
	require.NoError(t, err)
}

func TestSurveyTemplateRepository_WritesEvictCache(t *testing.T) {
	ctx := context.Background()
	c := newCachedRepo(t)

	template := testTemplate("Rooftop Unit")
	require.NoError(t, c.repo.Create(ctx, template))
	key := templateKey(template.ID)

	gomock.InOrder(
		c.client.EXPECT().
			Do(gomock.Any(), mock.Match("DEL", key)).
			Return(mock.Result(mock.ValkeyInt64(1))),
		c.client.EXPECT().
			Do(gomock.Any(), mock.Match("DEL", key)).
			Return(mock.Result(mock.ValkeyInt64(0))),
	)

	template.Description = "changed"
	require.NoError(t, c.repo.Update(ctx, template))
	require.NoError(t, c.repo.Delete(ctx, template.ID))
}

func TestSurveyTemplateRepository_FailedWritesKeepCache(t *testing.T) {
	ctx := context.Background()
	c := newCachedRepo(t)

	missing := testTemplate("Ghost")
	missing.ID = "missing"

	assert.ErrorIs(t, c.repo.Update(ctx, missing), ErrNotFound)
	assert.ErrorIs(t, c.repo.Delete(ctx, "missing"), ErrNotFound)
}
