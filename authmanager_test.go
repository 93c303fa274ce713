package gatewaysdk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthManagerLifecycle(t *testing.T) {
	a := NewAuthManager(true)
	assert.Equal(t, AuthNotAuthenticated, a.State())

	a.BeginAuthenticating()
	assert.Equal(t, AuthAuthenticating, a.State())

	identity := DeviceIdentity{
		DeviceID:             "sensor-42",
		AllowedPublishTopics: []string{"telemetry.sensor-42.>"},
	}
	a.Succeed(identity)
	assert.Equal(t, AuthAuthenticated, a.State())
	assert.Equal(t, identity, a.Identity())

	a.Reset()
	assert.Equal(t, AuthNotAuthenticated, a.State())
	assert.Equal(t, DeviceIdentity{}, a.Identity())
}

func TestAuthManagerFail(t *testing.T) {
	a := NewAuthManager(false)
	a.BeginAuthenticating()

	want := errors.New("bad credentials")
	a.Fail(want)

	assert.Equal(t, AuthFailed, a.State())
	assert.Equal(t, want, a.LastFailure())
}

func TestAuthManagerCanPublishAdvisoryByDefault(t *testing.T) {
	a := NewAuthManager(false)
	a.Succeed(DeviceIdentity{}) // empty allow-list would otherwise deny all

	assert.True(t, a.CanPublish("anything.goes"))
	assert.True(t, a.CanSubscribe("anything.goes"))
}

func TestAuthManagerEnforceLocallyEmptyAllowListDenies(t *testing.T) {
	a := NewAuthManager(true)
	a.Succeed(DeviceIdentity{DeviceID: "sensor-42"})

	assert.False(t, a.CanPublish("telemetry.sensor-42.temperature"))
	assert.False(t, a.CanSubscribe("telemetry.sensor-42.>"))
}

func TestAuthManagerEnforceLocallyHonorsAllowList(t *testing.T) {
	a := NewAuthManager(true)
	a.Succeed(DeviceIdentity{
		DeviceID:               "sensor-42",
		AllowedPublishTopics:   []string{"telemetry.sensor-42.>"},
		AllowedSubscribeTopics: []string{"commands.sensor-42.*"},
	})

	assert.True(t, a.CanPublish("telemetry.sensor-42.temperature"))
	assert.False(t, a.CanPublish("telemetry.sensor-43.temperature"))
	assert.True(t, a.CanSubscribe("commands.sensor-42.reboot"))
	assert.False(t, a.CanSubscribe("commands.sensor-42.a.b"))
}

func TestAuthManagerBeforeAuthenticatedDefersToGateway(t *testing.T) {
	a := NewAuthManager(true)
	assert.True(t, a.CanPublish("anything"))
	assert.True(t, a.CanSubscribe("anything"))
}
