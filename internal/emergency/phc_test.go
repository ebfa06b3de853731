package emergency

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"asha-triage/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStaticLocator_FindNearest(t *testing.T) {
	locator := NewStaticLocator("108", zap.NewNop())

	info, err := locator.FindNearest(context.Background(), "Pune", "Maharashtra")
	require.NoError(t, err)

	assert.Equal(t, "District Primary Health Center", info.Name)
	assert.Equal(t, "Pune", info.District)
	assert.Equal(t, "108", info.Contact)
	assert.Nil(t, info.Latitude)
}

// countingLocator 记录调用次数的桩
type countingLocator struct {
	calls int
	info  *PHCInfo
	err   error
}

func (l *countingLocator) FindNearest(ctx context.Context, district, state string) (*PHCInfo, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.info, nil
}

func setupCachedLocator(t *testing.T, inner Locator) (*miniredis.Miniredis, *CachedLocator) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewCachedLocator(inner, redisClient, zap.NewNop())
}

func TestCachedLocator_CachesLookups(t *testing.T) {
	inner := &countingLocator{
		info: &PHCInfo{Name: "Pune PHC", District: "Pune", State: "Maharashtra", Contact: "108"},
	}
	_, locator := setupCachedLocator(t, inner)

	info, err := locator.FindNearest(context.Background(), "Pune", "Maharashtra")
	require.NoError(t, err)
	assert.Equal(t, "Pune PHC", info.Name)
	assert.Equal(t, 1, inner.calls)

	// 第二次命中缓存，底层不再调用
	info, err = locator.FindNearest(context.Background(), "Pune", "Maharashtra")
	require.NoError(t, err)
	assert.Equal(t, "Pune PHC", info.Name)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedLocator_DistinctKeysPerDistrict(t *testing.T) {
	inner := &countingLocator{
		info: &PHCInfo{Name: "PHC", Contact: "108"},
	}
	_, locator := setupCachedLocator(t, inner)

	_, err := locator.FindNearest(context.Background(), "Pune", "Maharashtra")
	require.NoError(t, err)
	_, err = locator.FindNearest(context.Background(), "Nashik", "Maharashtra")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedLocator_CorruptCacheFallsThrough(t *testing.T) {
	inner := &countingLocator{
		info: &PHCInfo{Name: "Pune PHC", Contact: "108"},
	}
	mr, locator := setupCachedLocator(t, inner)
	mr.Set("asha:phc:nearest:Pune:Maharashtra", "not-json")

	info, err := locator.FindNearest(context.Background(), "Pune", "Maharashtra")
	require.NoError(t, err)
	assert.Equal(t, "Pune PHC", info.Name)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedLocator_InnerFailurePropagates(t *testing.T) {
	inner := &countingLocator{err: errors.New("gis service down")}
	_, locator := setupCachedLocator(t, inner)

	_, err := locator.FindNearest(context.Background(), "Pune", "Maharashtra")
	assert.Error(t, err)
}

func TestResolveNearestPHC_PlaceholderDistanceWithoutCoordinates(t *testing.T) {
	locator := NewStaticLocator("108", zap.NewNop())

	phc, err := ResolveNearestPHC(context.Background(), locator, &models.Location{
		District: "Pune",
		State:    "Maharashtra",
	})
	require.NoError(t, err)

	assert.Equal(t, 5.0, phc.Distance)
	assert.Equal(t, "108", phc.Contact)
}

func TestResolveNearestPHC_NilLocationDefaults(t *testing.T) {
	locator := NewStaticLocator("108", zap.NewNop())

	phc, err := ResolveNearestPHC(context.Background(), locator, nil)
	require.NoError(t, err)

	assert.Equal(t, "District Primary Health Center", phc.Name)
	assert.Equal(t, 5.0, phc.Distance)
}

func TestResolveNearestPHC_HaversineWhenBothSidesHaveCoordinates(t *testing.T) {
	facilityLat := 19.1000
	facilityLon := 72.9000
	inner := &countingLocator{
		info: &PHCInfo{
			Name:      "Mumbai PHC",
			Contact:   "108",
			Latitude:  &facilityLat,
			Longitude: &facilityLon,
		},
	}

	patientLat := 19.0760
	patientLon := 72.8777
	phc, err := ResolveNearestPHC(context.Background(), inner, &models.Location{
		District:  "Mumbai",
		State:     "Maharashtra",
		Latitude:  &patientLat,
		Longitude: &patientLon,
	})
	require.NoError(t, err)

	assert.InDelta(t, 3.5, phc.Distance, 0.5)
}

func TestResolveNearestPHC_PatientCoordinatesAloneNotEnough(t *testing.T) {
	// 设施没有坐标时即使患者有坐标也用占位距离
	locator := NewStaticLocator("108", zap.NewNop())

	lat := 19.0760
	lon := 72.8777
	phc, err := ResolveNearestPHC(context.Background(), locator, &models.Location{
		District:  "Mumbai",
		State:     "Maharashtra",
		Latitude:  &lat,
		Longitude: &lon,
	})
	require.NoError(t, err)

	assert.Equal(t, 5.0, phc.Distance)
}

func TestCachedLocator_CachedPayloadRoundTrips(t *testing.T) {
	inner := &countingLocator{
		info: &PHCInfo{Name: "Pune PHC", District: "Pune", State: "Maharashtra", Contact: "108"},
	}
	mr, locator := setupCachedLocator(t, inner)

	_, err := locator.FindNearest(context.Background(), "Pune", "Maharashtra")
	require.NoError(t, err)

	cached, err := mr.Get("asha:phc:nearest:Pune:Maharashtra")
	require.NoError(t, err)

	var info PHCInfo
	require.NoError(t, json.Unmarshal([]byte(cached), &info))
	assert.Equal(t, "Pune PHC", info.Name)
}
