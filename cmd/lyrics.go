package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"LumiFM/core/lyrics"
	"LumiFM/model"

	"github.com/spf13/cobra"
)

var (
	lyricsFrom     string
	lyricsTo       string
	lyricsInterval float64
	lyricsShift    float64
	lyricsTitle    string
	lyricsArtist   string
	lyricsOutput   string
)

var lyricsCmd = &cobra.Command{
	Use:   "lyrics <file>",
	Short: "歌词文件工具",
	Long:  `在LRC、纯文本和JSON包之间转换歌词文件，可选做整体时移和校验。`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("读取文件失败: %v", err)
		}

		var lines []model.LyricLine
		switch lyricsFrom {
		case "lrc":
			lines, err = lyrics.ParseLRC(string(raw))
		case "plain":
			lines, err = lyrics.ParsePlain(string(raw), lyricsInterval)
		case "json":
			var bundle *lyrics.Bundle
			bundle, err = lyrics.ImportBundle(raw)
			if err == nil {
				lines = bundle.Lyrics
				if lyricsTitle == "" {
					lyricsTitle = bundle.Track.Title
				}
				if lyricsArtist == "" {
					lyricsArtist = bundle.Track.Artist
				}
			}
		default:
			log.Fatalf("未知输入格式: %s", lyricsFrom)
		}
		if err != nil {
			log.Fatalf("解析歌词失败: %v", err)
		}

		if lyricsShift != 0 {
			lines = lyrics.ShiftAll(lines, lyricsShift)
		}

		for _, issue := range lyrics.Validate(lines) {
			fmt.Fprintf(os.Stderr, "警告: 第%d行: %s\n", issue.Line, issue.Message)
		}

		var out string
		switch lyricsTo {
		case "lrc":
			out = lyrics.FormatLRC(lines)
		case "json":
			track := &model.Track{Title: lyricsTitle, Artist: lyricsArtist}
			data, err := lyrics.ExportBundle(track, lines)
			if err != nil {
				log.Fatalf("导出失败: %v", err)
			}
			out = string(data)
		default:
			log.Fatalf("未知输出格式: %s", lyricsTo)
		}

		if lyricsOutput == "" || lyricsOutput == "-" {
			fmt.Print(out)
			if !strings.HasSuffix(out, "\n") {
				fmt.Println()
			}
			return
		}
		if err := os.WriteFile(lyricsOutput, []byte(out), 0o644); err != nil {
			log.Fatalf("写入文件失败: %v", err)
		}
		fmt.Printf("已写入 %s (%d 行)\n", lyricsOutput, len(lines))
	},
}

func init() {
	rootCmd.AddCommand(lyricsCmd)

	lyricsCmd.Flags().StringVar(&lyricsFrom, "from", "lrc", "输入格式: lrc, plain, json")
	lyricsCmd.Flags().StringVar(&lyricsTo, "to", "lrc", "输出格式: lrc, json")
	lyricsCmd.Flags().Float64Var(&lyricsInterval, "interval", 5.0, "纯文本输入时每行的间隔秒数")
	lyricsCmd.Flags().Float64Var(&lyricsShift, "shift", 0, "整体时移秒数，可为负")
	lyricsCmd.Flags().StringVar(&lyricsTitle, "title", "", "JSON包中的曲目标题")
	lyricsCmd.Flags().StringVar(&lyricsArtist, "artist", "", "JSON包中的艺术家")
	lyricsCmd.Flags().StringVarP(&lyricsOutput, "output", "o", "", "输出文件路径，省略时打印到标准输出")

	lyricsCmd.Example = `  # LRC转JSON包
  lumifm lyrics song.lrc --to json --title "星之海" -o song.json

  # 纯文本按3秒间隔生成LRC
  lumifm lyrics song.txt --from plain --interval 3 -o song.lrc

  # 整体时移-0.5秒
  lumifm lyrics song.lrc --shift=-0.5 -o adjusted.lrc`
}
