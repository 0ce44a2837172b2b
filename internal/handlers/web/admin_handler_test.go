package web

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/davesrecords/davesrecords/internal/audit"
	"github.com/davesrecords/davesrecords/internal/ocsf"
	"github.com/davesrecords/davesrecords/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminEnv(t *testing.T) *testEnv {
	return newTestEnv(t,
		&model.User{ID: 1, PublicSlug: "dave", Role: model.RoleAdmin, Status: model.StatusActive},
		&model.User{ID: 2, PublicSlug: "bob", Role: model.RoleUser, Status: model.StatusActive},
	)
}

func TestAdminRequiresSignIn(t *testing.T) {
	env := adminEnv(t)

	resp := env.do(t, http.MethodGet, "/api/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, env.audit.count())
}

func TestAdminDeniedIsAudited(t *testing.T) {
	env := adminEnv(t)

	resp := env.do(t, http.MethodPost, "/api/admin/users/1/ban", "", env.login(t, 2))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, MsgAdminRequired, resp.envelope(t).Error.Message)
	assert.Equal(t, model.StatusActive, env.users.users[1].Status)

	ev := env.audit.last()
	require.NotNil(t, ev)
	assert.Equal(t, ocsf.ClassAPIActivity, ev.ClassUID)
	assert.Equal(t, ocsf.ActivityOther, ev.ActivityID)
	assert.Equal(t, ocsf.StatusFailure, ev.StatusID)
	assert.Equal(t, ocsf.SeverityMedium, ev.SeverityID)
	assert.Equal(t, "admin_api", ev.Resource.Type)
	assert.Equal(t, uint(2), ev.Actor.User.UID)
}

func TestAdminListUsers(t *testing.T) {
	env := adminEnv(t)

	resp := env.do(t, http.MethodGet, "/api/admin/users?limit=10", "", env.login(t, 1))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := resp.envelope(t).Data.(map[string]interface{})
	assert.EqualValues(t, 2, data["total"])
	assert.Len(t, data["users"], 2)
	assert.EqualValues(t, 10, data["limit"])

	resp = env.do(t, http.MethodGet, "/api/admin/users?offset=-1", "", env.login(t, 1))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminBanAndUnban(t *testing.T) {
	env := adminEnv(t)
	cookie := env.login(t, 1)

	resp := env.do(t, http.MethodPost, "/api/admin/users/2/ban", "", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StatusBanned, env.users.users[2].Status)
	assert.Equal(t, []string{"bob"}, env.collections.invalidated)

	ev := env.audit.last()
	require.NotNil(t, ev)
	assert.Equal(t, ocsf.ClassAccountChange, ev.ClassUID)
	assert.Equal(t, ocsf.AccountDisable, ev.ActivityID)
	assert.Equal(t, ocsf.SeverityHigh, ev.SeverityID)
	assert.Equal(t, ocsf.StatusSuccess, ev.StatusID)
	assert.Equal(t, uint(2), ev.User.UID)
	assert.Equal(t, uint(1), ev.Actor.User.UID)

	resp = env.do(t, http.MethodPost, "/api/admin/users/2/unban", "", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StatusActive, env.users.users[2].Status)
	assert.Equal(t, ocsf.AccountEnable, env.audit.last().ActivityID)

	resp = env.do(t, http.MethodPost, "/api/admin/users/42/ban", "", cookie)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminCannotBanSelf(t *testing.T) {
	env := adminEnv(t)

	resp := env.do(t, http.MethodPost, "/api/admin/users/1/ban", "", env.login(t, 1))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, MsgCannotChangeOwnRecord, resp.envelope(t).Error.Message)
	assert.Equal(t, model.StatusActive, env.users.users[1].Status)

	ev := env.audit.last()
	require.NotNil(t, ev)
	assert.Equal(t, ocsf.StatusFailure, ev.StatusID)
	assert.Equal(t, "self_change", ev.StatusCode)
}

func TestAdminRoles(t *testing.T) {
	env := adminEnv(t)
	cookie := env.login(t, 1)

	resp := env.do(t, http.MethodPut, "/api/admin/users/2/role", `{"role":"admin"}`, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.RoleAdmin, env.users.users[2].Role)
	ev := env.audit.last()
	assert.Equal(t, ocsf.ClassUserAccess, ev.ClassUID)
	assert.Equal(t, ocsf.UserAccessAssignPrivileges, ev.ActivityID)
	assert.Equal(t, []string{"admin"}, ev.Privileges)
	assert.Equal(t, ocsf.SeverityHigh, ev.SeverityID)

	resp = env.do(t, http.MethodPut, "/api/admin/users/2/role", `{"role":"user"}`, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.RoleUser, env.users.users[2].Role)
	assert.Equal(t, ocsf.UserAccessRevokePrivileges, env.audit.last().ActivityID)

	resp = env.do(t, http.MethodPut, "/api/admin/users/2/role", `{"role":"root"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, MsgInvalidRole, resp.envelope(t).Error.Message)

	resp = env.do(t, http.MethodPut, "/api/admin/users/1/role", `{"role":"user"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, model.RoleAdmin, env.users.users[1].Role)
	assert.Equal(t, "self_change", env.audit.last().StatusCode)
}

func TestAdminAuditQuery(t *testing.T) {
	env := adminEnv(t)
	cookie := env.login(t, 1)

	resp := env.do(t, http.MethodGet, "/api/admin/audit?class_uid=3002&severity_id=4&actor_user_id=2&from=2024-01-01T00:00:00Z&limit=20&resource_type=user_settings", "", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, env.audit.filters, 1)
	filter := env.audit.filters[0]
	require.NotNil(t, filter.ClassUID)
	assert.Equal(t, ocsf.ClassAuthentication, *filter.ClassUID)
	assert.Equal(t, ocsf.SeverityHigh, *filter.SeverityID)
	assert.Equal(t, uint(2), *filter.ActorUserID)
	require.NotNil(t, filter.From)
	assert.Equal(t, 2024, filter.From.Year())
	assert.Nil(t, filter.To)
	assert.Equal(t, 20, filter.Limit)
	assert.Equal(t, "user_settings", filter.ResourceType)

	resp = env.do(t, http.MethodGet, "/api/admin/audit?class_uid=auth", "", cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, MsgInvalidAuditFilter, resp.envelope(t).Error.Message)
	assert.Len(t, env.audit.filters, 1)

	env.audit.queryErr = fmt.Errorf("%w: from after to", audit.ErrInvalidFilter)
	resp = env.do(t, http.MethodGet, "/api/admin/audit", "", cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminAuditStats(t *testing.T) {
	env := adminEnv(t)
	cookie := env.login(t, 1)

	resp := env.do(t, http.MethodGet, "/api/admin/audit/stats", "", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := resp.envelope(t).Data.(map[string]interface{})
	assert.EqualValues(t, 3, data["total"])

	resp = env.do(t, http.MethodGet, "/api/admin/audit/stats?to=yesterday", "", cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminUserAudit(t *testing.T) {
	env := adminEnv(t)

	resp := env.do(t, http.MethodGet, "/api/admin/users/2/audit", "", env.login(t, 1))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := resp.envelope(t).Data.(map[string]interface{})
	assert.EqualValues(t, 2, data["userId"])
	assert.Len(t, data["performed"], 1)
	assert.Len(t, data["targeted"], 0)
}
