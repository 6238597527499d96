package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/KINGFIOX/rvemu-hitsz/config"
)

var _ = Describe("MemoryConfig", func() {
	Describe("Default Config", func() {
		It("should create valid default config", func() {
			c := config.DefaultMemoryConfig()
			Expect(c.Validate()).To(Succeed())
			Expect(c.Base).To(Equal(uint32(0x80000000)))
			Expect(c.Size).To(Equal(uint32(128 * 1024 * 1024)))
			Expect(c.Cache.Enabled).To(BeFalse())
		})

		It("should have a valid cache geometry when enabled", func() {
			c := config.DefaultMemoryConfig()
			c.Cache.Enabled = true
			Expect(c.Validate()).To(Succeed())
		})
	})

	Describe("Validation", func() {
		var c *config.MemoryConfig

		BeforeEach(func() {
			c = config.DefaultMemoryConfig()
		})

		It("should reject zero size", func() {
			c.Size = 0
			Expect(c.Validate()).To(HaveOccurred())
		})

		It("should reject a window that wraps", func() {
			c.Base = 0xFFFFF000
			c.Size = 0x2000
			Expect(c.Validate()).To(MatchError(ContainSubstring("wraps")))
		})

		It("should accept a window ending at the top of memory", func() {
			c.Base = 0xFFFFF000
			c.Size = 0x1000
			Expect(c.Validate()).To(Succeed())
		})

		It("should reject a window that wraps only after rounding", func() {
			c.Base = 0xFFFFFFF0
			c.Size = 0x0D
			Expect(c.Validate()).To(Succeed())
			c.Size = 0x11
			Expect(c.Validate()).To(HaveOccurred())
		})

		Context("with the cache enabled", func() {
			BeforeEach(func() {
				c.Cache.Enabled = true
			})

			It("should reject a non power-of-two block size", func() {
				c.Cache.BlockSize = 48
				Expect(c.Validate()).To(HaveOccurred())
			})

			It("should reject zero associativity", func() {
				c.Cache.Associativity = 0
				Expect(c.Validate()).To(HaveOccurred())
			})

			It("should reject a size that is not a whole number of sets", func() {
				c.Cache.Size = 1000
				Expect(c.Validate()).To(HaveOccurred())
			})

			It("should reject a non power-of-two set count", func() {
				c.Cache.Size = 3 * 4 * 64
				Expect(c.Validate()).To(HaveOccurred())
			})

			It("should reject a miss latency below the hit latency", func() {
				c.Cache.HitLatency = 10
				c.Cache.MissLatency = 5
				Expect(c.Validate()).To(HaveOccurred())
			})
		})

		It("should ignore cache geometry while the cache is disabled", func() {
			c.Cache.BlockSize = 48
			Expect(c.Validate()).To(Succeed())
		})
	})

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := config.DefaultMemoryConfig()
			clone := original.Clone()

			clone.Size = 4096
			clone.Cache.Enabled = true

			Expect(original.Size).To(Equal(uint32(config.DefaultSize)))
			Expect(original.Cache.Enabled).To(BeFalse())
			Expect(clone.Size).To(Equal(uint32(4096)))
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "memconfig-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should save and load config", func() {
			original := config.DefaultMemoryConfig()
			original.Base = 0x1000
			original.Size = 0x4000
			original.Cache.Enabled = true

			path := filepath.Join(tempDir, "memory.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})

		It("should keep defaults for fields missing from the file", func() {
			path := filepath.Join(tempDir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"size": 8192}`), 0644)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Size).To(Equal(uint32(8192)))
			Expect(loaded.Base).To(Equal(uint32(config.DefaultBase)))
			Expect(loaded.Cache.BlockSize).To(Equal(64))
		})

		It("should return error for non-existent file", func() {
			_, err := config.LoadConfig("/nonexistent/path/memory.json")
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "invalid.json")
			err := os.WriteFile(path, []byte("not valid json"), 0644)
			Expect(err).NotTo(HaveOccurred())

			_, err = config.LoadConfig(path)
			Expect(err).To(MatchError(ContainSubstring("failed to parse")))
		})
	})
})
