package services

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/config"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/models"

	"github.com/oschwald/geoip2-golang"
)

// mockLocation is returned for loopback and private addresses so local and
// dev traffic stays deterministic instead of inflating "unknown" buckets.
// unknownLocation is the sentinel used when a lookup misses. Enrichment is
// total: callers always get a fully populated location.
var unknownLocation = models.Location{
	Country:     "Unknown",
	CountryCode: "XX",
	Region:      "Unknown",
	City:        "Unknown",
	Timezone:    "",
	Coordinates: [2]float64{0, 0},
}

var mockLocation = models.Location{
	Country:     "Indonesia",
	CountryCode: "ID",
	Region:      "Jakarta",
	City:        "Jakarta",
	Timezone:    "Asia/Jakarta",
	Coordinates: [2]float64{-6.2088, 106.8456},
}

type GeoIPService struct {
	cfg       config.Config
	logger    *slog.Logger
	geoReader *geoip2.Reader
	geoLock   sync.RWMutex
}

func NewGeoIPService(cfg config.Config, logger *slog.Logger) *GeoIPService {
	return &GeoIPService{
		cfg:    cfg,
		logger: logger,
	}
}

func (s *GeoIPService) Init() {
	if s.cfg.MaxMindAccountID == "" || s.cfg.MaxMindLicenseKey == "" {
		s.logger.Warn("GeoIP: MaxMind credentials not set. Lookups will be disabled.")
		return
	}

	dbPath := s.cfg.MaxMindDBPath
	dbDir := filepath.Dir(dbPath)

	if err := os.MkdirAll(dbDir, 0755); err != nil {
		s.logger.Error("GeoIP: Failed to create directory", "dir", dbDir, "error", err)
		return
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		s.logger.Info("GeoIP: Database missing, downloading...")
		if err := s.updateGeoDB(); err != nil {
			s.logger.Error("GeoIP: Initial download failed", "error", err)
		}
	}

	s.reloadReader(dbPath)
}

func (s *GeoIPService) StartUpdater(ctx context.Context) {
	if s.cfg.MaxMindAccountID == "" {
		return
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.logger.Info("GeoIP: Running scheduled update...")
			if err := s.updateGeoDB(); err != nil {
				s.logger.Error("GeoIP: Update failed", "error", err)
				continue
			}
			s.reloadReader(s.cfg.MaxMindDBPath)
		case <-ctx.Done():
			s.logger.Info("GeoIP: Updater stopping")
			return
		}
	}
}

func (s *GeoIPService) updateGeoDB() error {
	dbDir := filepath.Dir(s.cfg.MaxMindDBPath)
	confPath := filepath.Join(dbDir, "GeoIP.conf")

	content := fmt.Sprintf("AccountID %s\nLicenseKey %s\nEditionIDs %s\nDatabaseDirectory %s\n",
		s.cfg.MaxMindAccountID, s.cfg.MaxMindLicenseKey, s.cfg.MaxMindEditionIDs, dbDir)

	if err := os.WriteFile(confPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write GeoIP.conf: %w", err)
	}
	defer os.Remove(confPath)

	cmd := exec.Command("geoipupdate", "-v", "-f", confPath, "-d", dbDir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("geoipupdate failed: %w, output: %s", err, string(output))
	}

	s.logger.Info("GeoIP: Database updated successfully")
	return nil
}

func (s *GeoIPService) reloadReader(path string) {
	s.geoLock.Lock()
	defer s.geoLock.Unlock()

	if s.geoReader != nil {
		s.geoReader.Close()
	}

	reader, err := geoip2.Open(path)
	if err != nil {
		s.logger.Error("GeoIP: Failed to open database", "path", path, "error", err)
		return
	}
	s.geoReader = reader

	meta := reader.Metadata()
	s.logger.Info("GeoIP: Loaded database", "epoch", meta.BuildEpoch)
}

// Resolve maps an address to a location. Private and loopback addresses
// short-circuit to the fixed mock location. A dataset miss returns ok=false
// and the caller omits location rather than treating it as an error. Every
// returned location is fully populated with sentinels.
func (s *GeoIPService) Resolve(ipStr string) (models.Location, bool) {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return models.Location{}, false
	}

	if isPrivateIP(ip) {
		return mockLocation, true
	}

	s.geoLock.RLock()
	reader := s.geoReader
	s.geoLock.RUnlock()

	if reader == nil {
		return models.Location{}, false
	}

	record, err := reader.City(ip)
	if err != nil {
		s.logger.Error("GeoIP: Lookup error", "ip", ipStr, "error", err)
		return models.Location{}, false
	}
	if record.Country.IsoCode == "" && record.City.GeoNameID == 0 {
		return models.Location{}, false
	}

	loc := models.Location{
		Country:     "Unknown",
		CountryCode: "XX",
		Region:      "Unknown",
		City:        "Unknown",
		Timezone:    "",
		Coordinates: [2]float64{record.Location.Latitude, record.Location.Longitude},
	}

	if name, ok := record.Country.Names["en"]; ok && name != "" {
		loc.Country = name
	} else if record.Country.IsoCode != "" {
		loc.Country = record.Country.IsoCode
	}
	if record.Country.IsoCode != "" {
		loc.CountryCode = record.Country.IsoCode
	}
	if len(record.Subdivisions) > 0 {
		if name, ok := record.Subdivisions[0].Names["en"]; ok && name != "" {
			loc.Region = name
		}
	}
	if name, ok := record.City.Names["en"]; ok && name != "" {
		loc.City = name
	}
	if record.Location.TimeZone != "" {
		loc.Timezone = record.Location.TimeZone
	}

	return loc, true
}

// isPrivateIP covers exact loopback values, the RFC1918 blocks and link-local.
func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
