package models

import "strconv"

func BlobKey(ownerID int64, filename string) string {
	return strconv.FormatInt(ownerID, 10) + "/" + filename
}
