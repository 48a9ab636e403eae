package service

import (
	"crypto/rand"
	"math/big"
)

// 验证码字符集：大写字母 + 数字，去掉易混淆的 0/O/1/I
const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// randCode 生成 n 位随机验证码（crypto/rand）
func randCode(n int) (string, error) {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(codeCharset)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeCharset[idx.Int64()]
	}
	return string(buf), nil
}
