package mongo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

const gridFSRefPrefix = "gridfs://"

type mediaMetadata struct {
	ContentType string `bson:"contentType"`
}

// PutMedia загружает файл в GridFS и возвращает ссылку gridfs://<id>/<name>.
func (g *Gateway) PutMedia(ctx context.Context, file domain.MediaFile) (string, error) {
	if len(file.Data) == 0 {
		return "", domain.ErrImageRequired
	}
	bucket, err := g.bucket(ctx)
	if err != nil {
		return "", err
	}
	id, err := bucket.UploadFromStream(file.Name, bytes.NewReader(file.Data),
		options.GridFSUpload().SetMetadata(mediaMetadata{ContentType: file.ContentType}))
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	return gridFSRefPrefix + id.Hex() + "/" + file.Name, nil
}

// GetMedia скачивает файл по ссылке.
func (g *Gateway) GetMedia(ctx context.Context, ref string) (domain.MediaFile, error) {
	id, ok := parseGridFSRef(ref)
	if !ok {
		return domain.MediaFile{}, domain.ErrMediaNotFound
	}
	bucket, err := g.bucket(ctx)
	if err != nil {
		return domain.MediaFile{}, err
	}
	stream, err := bucket.OpenDownloadStream(id)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return domain.MediaFile{}, domain.ErrMediaNotFound
	}
	if err != nil {
		return domain.MediaFile{}, fmt.Errorf("open media stream: %w", err)
	}
	defer stream.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(stream); err != nil {
		return domain.MediaFile{}, fmt.Errorf("read media: %w", err)
	}

	info := stream.GetFile()
	file := domain.MediaFile{Name: info.Name, Data: buf.Bytes()}
	if len(info.Metadata) > 0 {
		var meta mediaMetadata
		if err := bson.Unmarshal(info.Metadata, &meta); err == nil {
			file.ContentType = meta.ContentType
		}
	}
	return file, nil
}

// DeleteMedia удаляет файл и его чанки.
func (g *Gateway) DeleteMedia(ctx context.Context, ref string) error {
	id, ok := parseGridFSRef(ref)
	if !ok {
		return domain.ErrMediaNotFound
	}
	bucket, err := g.bucket(ctx)
	if err != nil {
		return err
	}
	if err := bucket.Delete(id); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return domain.ErrMediaNotFound
		}
		return fmt.Errorf("delete media: %w", err)
	}
	return nil
}

// bucket создаёт bucket на одну операцию: дедлайны GridFS задаются на сам bucket, а не на контекст.
func (g *Gateway) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(g.db, options.GridFSBucket().SetName(mediaBucket))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(opTimeout)
	}
	if err := bucket.SetWriteDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set gridfs write deadline: %w", err)
	}
	if err := bucket.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set gridfs read deadline: %w", err)
	}
	return bucket, nil
}

func isGridFSRef(ref string) bool {
	_, ok := parseGridFSRef(ref)
	return ok
}

func parseGridFSRef(ref string) (primitive.ObjectID, bool) {
	rest, ok := strings.CutPrefix(ref, gridFSRefPrefix)
	if !ok {
		return primitive.NilObjectID, false
	}
	hex, _, _ := strings.Cut(rest, "/")
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
