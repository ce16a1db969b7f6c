package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
)

type fakeProber struct {
	live   map[string]bool
	errs   map[string]error
	probed []string
}

func (f *fakeProber) Probe(_ context.Context, url string) (bool, error) {
	f.probed = append(f.probed, url)
	if err, ok := f.errs[url]; ok {
		return false, err
	}
	return f.live[url], nil
}

func TestDiscover_DeclaredWebsiteWins(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{}
	d := New(prober, "no", zap.NewNop())

	site, err := d.Discover(context.Background(), scanner.Target{Name: "Hotel Norge", Website: "www.hotelnorge.no"})
	require.NoError(t, err)
	require.Equal(t, "https://www.hotelnorge.no", site)
	require.Empty(t, prober.probed)

	site, err = d.Discover(context.Background(), scanner.Target{Website: "http://plain.no"})
	require.NoError(t, err)
	require.Equal(t, "http://plain.no", site)
}

func TestDiscover_GuessesFromName(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{
		live: map[string]bool{"https://fjordhotellas.no": true},
		errs: map[string]error{"https://www.fjordhotellas.no": errors.New("no such host")},
	}
	d := New(prober, "", nil)

	site, err := d.Discover(context.Background(), scanner.Target{Name: "Fjord Hotell AS"})
	require.NoError(t, err)
	require.Equal(t, "https://fjordhotellas.no", site)
	require.Equal(t, []string{"https://www.fjordhotellas.no", "https://fjordhotellas.no"}, prober.probed)
}

func TestDiscover_NothingFound(t *testing.T) {
	t.Parallel()

	d := New(&fakeProber{}, "no", nil)
	site, err := d.Discover(context.Background(), scanner.Target{Name: "Ukjent Gjestehus"})
	require.NoError(t, err)
	require.Empty(t, site)
}

func TestDiscover_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := New(&fakeProber{}, "no", nil)
	_, err := d.Discover(ctx, scanner.Target{Name: "Any"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCandidateURLs(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"https://www.brhotell.no", "https://brhotell.no"}, CandidateURLs("Bær Hotell", "no"))
	require.Equal(t, []string{"https://www.co.no", "https://co.no"}, CandidateURLs("ÆØÅ & Co!", "no"))
	require.Empty(t, CandidateURLs("æøå", "no"))
}
