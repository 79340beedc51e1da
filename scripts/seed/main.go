package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/quickblog/internal/config"
	"github.com/quickblog/internal/db"
	"gorm.io/gorm"
)

// 测试数据生成器
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("配置加载失败:", err)
	}

	blogCount := flag.Int("blogs", 12, "number of blogs to create")
	reset := flag.Bool("reset", false, "delete existing blogs and comments first")
	flag.Parse()

	// 初始化数据库
	if err := db.Init(cfg.DatabaseDriver, cfg.DatabaseDSN); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	if _, err := db.EnsureUser(db.DB, "admin", "admin123"); err != nil {
		log.Fatal("创建用户失败:", err)
	}

	if *reset {
		if err := resetContent(db.DB); err != nil {
			log.Fatal("清理数据失败:", err)
		}
	}

	stats, err := seedContent(db.DB, *blogCount, time.Now())
	if err != nil {
		log.Fatal("生成数据失败:", err)
	}

	fmt.Println("测试数据生成完成！")
	fmt.Println("用户: admin (密码: admin123)")
	fmt.Printf("文章: %d 篇 (草稿 %d 篇)\n", stats.blogs, stats.drafts)
	fmt.Printf("评论: %d 条 (待审核 %d 条)\n", stats.comments, stats.pending)
}

type seedStats struct {
	blogs, drafts     int
	comments, pending int
}

var seedTopics = []struct {
	title    string
	subTitle string
	body     string
}{
	{"Shipping Small Services", "Keep the surface area boring", "<h2>Start small</h2><p>One binary, one database, one deploy.</p>"},
	{"Notes on Bootstrapping", "Revenue before headcount", "<h2>Customers first</h2><p>Talk to ten users before writing code.</p>"},
	{"A Slower Morning", "Routines that stick", "<ul><li>Coffee</li><li>Walk</li><li>Write</li></ul>"},
	{"Index Funds Explained", "Boring is fine", "<p>Low fees compound over <strong>decades</strong>.</p>"},
	{"Debugging in Production", "Logs, metrics and patience", "<h2>Observe</h2><p>Add a request id to every log line.</p>"},
	{"Hiring Your First Engineer", "What to look for", "<p>Look for people who finish things.</p>"},
}

var seedCommenters = []string{"Ann", "Bo", "Chen", "Dana", "Eli"}

// seedContent 按分类轮换生成文章，每三篇留一篇草稿，并为每篇文章生成已审核与待审核评论。
func seedContent(gdb *gorm.DB, count int, now time.Time) (seedStats, error) {
	var stats seedStats
	for i := 0; i < count; i++ {
		topic := seedTopics[i%len(seedTopics)]
		published := i%3 != 2
		blog := db.Blog{
			Title:       fmt.Sprintf("%s #%d", topic.title, i+1),
			SubTitle:    topic.subTitle,
			Description: topic.body,
			Category:    db.Categories[i%len(db.Categories)],
			Image:       fmt.Sprintf("https://picsum.photos/seed/quickblog-%d/1280/720", i+1),
			IsPublished: published,
			CreatedAt:   now.Add(-time.Duration(count-i) * time.Hour),
		}
		if err := gdb.Create(&blog).Error; err != nil {
			return stats, fmt.Errorf("create blog %q: %w", blog.Title, err)
		}
		stats.blogs++
		if !published {
			stats.drafts++
		}

		for j := 0; j < i%3+1; j++ {
			approved := j%2 == 0
			comment := db.Comment{
				BlogID:     blog.ID,
				Name:       seedCommenters[(i+j)%len(seedCommenters)],
				Content:    fmt.Sprintf("Thoughts on %s, part %d.", topic.title, j+1),
				IsApproved: approved,
			}
			if err := gdb.Create(&comment).Error; err != nil {
				return stats, fmt.Errorf("create comment for blog %d: %w", blog.ID, err)
			}
			stats.comments++
			if !approved {
				stats.pending++
			}
		}
	}
	return stats, nil
}

func resetContent(gdb *gorm.DB) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&db.Comment{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&db.Blog{}).Error
	})
}
