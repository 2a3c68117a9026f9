package transform

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grocerytrack/modality-scout/internal/availability"
	"github.com/grocerytrack/modality-scout/internal/brand"
)

func newTestTransformer(rows []brand.StoreRow) *Transformer {
	var ix *brand.Index
	if rows != nil {
		ix = brand.NewIndex(rows)
	}
	return New("Kroger", brand.NewResolver(ix, zap.NewNop()), zap.NewNop())
}

func opelikaTask() availability.Task {
	return availability.Task{PostalCode: "36804", City: "Opelika", Region: "Alabama", State: "AL"}
}

func TestTransformPickupScenario(t *testing.T) {
	t.Parallel()

	tr := newTestTransformer([]brand.StoreRow{{StoreNumber: "01234", ChainName: "Kroger"}})
	raw := []byte(`{"data":{"modalityOptions":{"PICKUP":true,"storeDetails":[{"locationId":"01234","banner":"Kroger"}]}}}`)

	rec, err := tr.Transform(raw, opelikaTask())
	require.NoError(t, err)

	require.Equal(t, "Kroger", rec.Ecommerce)
	require.Equal(t, "Opelika", rec.CityName)
	require.Equal(t, "AL", rec.StateAbbrev)
	require.Equal(t, "36804", rec.ZipCode)
	require.Equal(t, availability.FlagNo, rec.Delivery)
	require.Empty(t, rec.DeliveryGrocery)
	require.Empty(t, rec.DeliveryRestaurants)
	require.Empty(t, rec.DeliveryAll)
	require.Equal(t, availability.FlagYes, rec.Pickup)
	require.Equal(t, []string{"Kroger"}, rec.PickupGrocery)
	require.Empty(t, rec.PickupRestaurants)
	require.Equal(t, []string{"Kroger"}, rec.PickupAll)
}

func TestTransformDeliveryFulfillment(t *testing.T) {
	t.Parallel()

	tr := newTestTransformer([]brand.StoreRow{
		{StoreNumber: "011-00", ChainName: "Kroger"},
		{StoreNumber: "02200", ChainName: "Ralphs"},
	})
	raw := []byte(`{"data":{"modalityOptions":{
		"DELIVERY":{"fulfillment":["01100","02200","01100","09999"]},
		"PICKUP":{}
	}}}`)

	rec, err := tr.Transform(raw, opelikaTask())
	require.NoError(t, err)

	require.Equal(t, availability.FlagYes, rec.Delivery)
	require.Equal(t, []string{"Kroger", "Ralphs"}, rec.DeliveryGrocery)
	require.Equal(t, []string{"Kroger", "Ralphs"}, rec.DeliveryAll)
	// Empty PICKUP object is falsy.
	require.Equal(t, availability.FlagNo, rec.Pickup)
	require.Empty(t, rec.PickupGrocery)
}

func TestTransformDuplicateStoresCollapse(t *testing.T) {
	t.Parallel()

	tr := newTestTransformer([]brand.StoreRow{
		{StoreNumber: "01234", ChainName: "Kroger"},
		{StoreNumber: "05678", ChainName: "Kroger"},
	})
	raw := []byte(`{"data":{"modalityOptions":{"PICKUP":true,"storeDetails":[
		{"locationId":"01234","banner":"Kroger","allowedModalities":["PICKUP","DELIVERY"]},
		{"locationId":"05678","banner":"Kroger","allowedModalities":["PICKUP"]}
	]}}}`)

	rec, err := tr.Transform(raw, opelikaTask())
	require.NoError(t, err)
	require.Equal(t, []string{"Kroger"}, rec.PickupGrocery)
	require.Equal(t, []string{"Kroger"}, rec.PickupAll)
}

func TestTransformStoreWithoutPickupModalitySkipped(t *testing.T) {
	t.Parallel()

	tr := newTestTransformer([]brand.StoreRow{
		{StoreNumber: "01234", ChainName: "Kroger"},
		{StoreNumber: "05678", ChainName: "Ralphs"},
	})
	raw := []byte(`{"data":{"modalityOptions":{"PICKUP":true,"storeDetails":[
		{"locationId":"01234","banner":"Kroger","allowedModalities":["DELIVERY"]},
		{"locationId":"05678","banner":"Ralphs","allowedModalities":["PICKUP"]}
	]}}}`)

	rec, err := tr.Transform(raw, opelikaTask())
	require.NoError(t, err)
	require.Equal(t, []string{"Ralphs"}, rec.PickupGrocery)
}

func TestTransformDeliveryAbsentMeansNo(t *testing.T) {
	t.Parallel()

	tr := newTestTransformer(nil)
	for _, raw := range []string{
		`{"data":{"modalityOptions":{}}}`,
		`{"data":{"modalityOptions":{"DELIVERY":null}}}`,
		`{"data":{"modalityOptions":{"DELIVERY":{}}}}`,
		`{"data":{"modalityOptions":{"DELIVERY":false}}}`,
	} {
		rec, err := tr.Transform([]byte(raw), opelikaTask())
		require.NoError(t, err, raw)
		require.Equal(t, availability.FlagNo, rec.Delivery, raw)
		require.Empty(t, rec.DeliveryGrocery, raw)
		require.Empty(t, rec.DeliveryAll, raw)
	}
}

func TestTransformRejectedPayload(t *testing.T) {
	t.Parallel()

	tr := newTestTransformer(nil)
	raw := []byte(`{"errors":[{"code":"UNKNOWN_POSTAL_CODE"}]}`)

	rec, err := tr.Transform(raw, opelikaTask())
	require.NoError(t, err)
	require.Equal(t, availability.FlagNo, rec.Delivery)
	require.Equal(t, availability.FlagNo, rec.Pickup)
	require.Empty(t, rec.PickupAll)
}

func TestTransformMalformedBody(t *testing.T) {
	t.Parallel()

	tr := newTestTransformer(nil)
	_, err := tr.Transform([]byte(`<html>503 backend</html>`), opelikaTask())
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestTransformUnresolvedLocationOmitted(t *testing.T) {
	t.Parallel()

	tr := newTestTransformer([]brand.StoreRow{{StoreNumber: "01234", ChainName: "Kroger"}})
	raw := []byte(`{"data":{"modalityOptions":{"PICKUP":true,"storeDetails":[
		{"locationId":"01234","banner":"Kroger"},
		{"locationId":"77777","banner":""}
	]}}}`)

	rec, err := tr.Transform(raw, opelikaTask())
	require.NoError(t, err)
	require.Equal(t, []string{"Kroger"}, rec.PickupGrocery)
}

func TestTransformFuzzyFallbackWithoutIndex(t *testing.T) {
	t.Parallel()

	tr := newTestTransformer(nil)
	raw := []byte(`{"data":{"modalityOptions":{"PICKUP":true,"storeDetails":[
		{"locationId":"01234","banner":"Fred Meyer Stores"}
	]}}}`)

	rec, err := tr.Transform(raw, opelikaTask())
	require.NoError(t, err)
	require.Equal(t, []string{"Fred Meyer"}, rec.PickupGrocery)
}

func TestParseKinds(t *testing.T) {
	t.Parallel()

	p, err := Parse([]byte(`{"data":{"modalityOptions":{"PICKUP":true}}}`))
	require.NoError(t, err)
	require.Equal(t, KindAvailable, p.Kind)
	require.NotNil(t, p.Modality)

	p, err = Parse([]byte(`{"errors":{"reason":"bad zip"}}`))
	require.NoError(t, err)
	require.Equal(t, KindRejected, p.Kind)

	p, err = Parse([]byte(`{"data":{}}`))
	require.NoError(t, err)
	require.Equal(t, KindRejected, p.Kind)

	_, err = Parse([]byte(`not json`))
	require.ErrorIs(t, err, ErrMalformedPayload)
}
